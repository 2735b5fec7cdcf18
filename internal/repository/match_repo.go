package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
)

// MatchRepository provides data access for matches.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// LockPair serialises transactions touching the pair (a, b) until tx ends.
// On PostgreSQL it takes a transaction-scoped advisory lock keyed on the
// canonical pair; SQLite already runs one writer at a time.
func (r *MatchRepository) LockPair(ctx context.Context, a, b uint64) error {
	if !db.IsPostgres(r.db) {
		return nil
	}
	u1, u2 := db.CanonicalPair(a, b)
	key := fmt.Sprintf("match:%d:%d", u1, u2)
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
}

// CreateIfAbsent stores the match between a and b exactly once.
//
// Behavior:
//   - The pair is canonicalised (lower id first) before insert.
//   - INSERT ... ON CONFLICT DO NOTHING against uq_matches_pair, so the loser
//     of a race observes created = false instead of an error.
//   - The returned match is always the stored row.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64) (*db.Match, bool, error) {
	u1, u2 := db.CanonicalPair(a, b)
	m := db.Match{User1ID: u1, User2ID: u2}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &m, true, nil
	}

	existing, err := r.GetByPair(ctx, u1, u2)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MatchRepository) GetByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	u1, u2 := db.CanonicalPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetForUser returns the match only if userID is one of its sides, with both
// users and their profiles preloaded.
func (r *MatchRepository) GetForUser(ctx context.Context, matchID, userID uint64) (*db.Match, error) {
	var m db.Match
	err := r.withUsers(ctx).
		Where("id = ? AND (user1_id = ? OR user2_id = ?)", matchID, userID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns the user's matches, newest first, cursor-paginated.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	pageToken *string,
	limit int,
) ([]db.Match, *string, error) {
	cursor, err := pagination.Decode(getString(pageToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.withUsers(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("id DESC").
		Limit(limit + 1)
	if cursor.LastID > 0 {
		query = query.Where("id < ?", cursor.LastID)
	}

	var matches []db.Match
	if err := query.Find(&matches).Error; err != nil {
		return nil, nil, err
	}

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}
	var lastID uint64
	if len(matches) > 0 {
		lastID = matches[len(matches)-1].ID
	}
	return matches, pagination.NextToken(hasMore, lastID), nil
}

func (r *MatchRepository) MarkNotified(ctx context.Context, matchID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", matchID).
		Update("is_notified", true).Error
}

// Delete removes the match. Returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *MatchRepository) Delete(ctx context.Context, matchID uint64) error {
	res := r.db.WithContext(ctx).Delete(&db.Match{}, matchID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MatchRepository) withUsers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User1.Profile").
		Preload("User2.Profile")
}
