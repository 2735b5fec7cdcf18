package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
)

// ActionRepository provides data access methods for swipe actions.
// It encapsulates all queries related to likes/dislikes/reports between users.
type ActionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new repository bound to the given DB connection.
func NewActionRepository(database *gorm.DB) *ActionRepository {
	return &ActionRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *ActionRepository) WithTx(tx *gorm.DB) *ActionRepository {
	return &ActionRepository{db: tx}
}

// Create inserts an action made by from -> to.
//
// Behavior:
//   - A second action on the same ordered pair fails with gorm.ErrDuplicatedKey
//     (uq_actions_from_to); actions are immutable once written.
//   - A self action fails the chk_actions_not_self constraint; callers reject
//     it earlier with a proper error.
func (r *ActionRepository) Create(ctx context.Context, a *db.Action) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// Get returns the action from -> to, or gorm.ErrRecordNotFound.
func (r *ActionRepository) Get(ctx context.Context, fromUserID, toUserID uint64) (*db.Action, error) {
	var a db.Action
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HasLiked checks whether from has liked to.
//
// Example:
//
//	repo.HasLiked(ctx, 1, 2) // -> true if user 1 liked user 2
func (r *ActionRepository) HasLiked(ctx context.Context, fromUserID, toUserID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Action{}).
		Where("from_user_id = ? AND to_user_id = ? AND action_type = ?", fromUserID, toUserID, db.ActionLike).
		Count(&count).Error
	return count > 0, err
}

// HasIncomingLike is HasLiked seen from the recipient's side.
func (r *ActionRepository) HasIncomingLike(ctx context.Context, viewerID, likerID uint64) (bool, error) {
	return r.HasLiked(ctx, likerID, viewerID)
}

// ActedUserIDs returns every user the given user has already swiped on.
func (r *ActionRepository) ActedUserIDs(ctx context.Context, fromUserID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Action{}).
		Where("from_user_id = ?", fromUserID).
		Pluck("to_user_id", &ids).Error
	return ids, err
}

// IncomingLikes returns likes directed at the viewer that the viewer has not
// answered yet.
//
// Behavior:
//   - Only actions where to_user_id = viewer and action_type = like.
//   - Excludes likers the viewer already acted on (any action type).
//   - Excludes likers that are banned.
//   - Ordered by id DESC (newest first).
//   - Supports cursor-based pagination via pageToken.
//
// Example:
//
//	repo.IncomingLikes(ctx, 42, nil, 20) // first 20 unanswered likes for user 42
func (r *ActionRepository) IncomingLikes(
	ctx context.Context,
	viewerID uint64,
	pageToken *string,
	limit int,
) ([]db.Action, *string, error) {
	var actions []db.Action

	cursor, err := pagination.Decode(getString(pageToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("user_actions a").
		Select("a.*").
		Joins("JOIN users u ON u.id = a.from_user_id AND u.is_banned = ?", false).
		Where("a.to_user_id = ? AND a.action_type = ?", viewerID, db.ActionLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM user_actions a2
				WHERE a2.from_user_id = ?
				  AND a2.to_user_id = a.from_user_id
			)`, viewerID).
		Order("a.id DESC").
		Limit(limit + 1)

	// apply cursor
	if cursor.LastID > 0 {
		query = query.Where("a.id < ?", cursor.LastID)
	}

	if err := query.Find(&actions).Error; err != nil {
		return nil, nil, err
	}

	hasMore := len(actions) > limit
	if hasMore {
		actions = actions[:limit]
	}
	var lastID uint64
	if len(actions) > 0 {
		lastID = actions[len(actions)-1].ID
	}
	return actions, pagination.NextToken(hasMore, lastID), nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
