package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/gymbro-match/internal/db"
)

// UserRepository provides data access for users.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Register is get-or-create by telegram id.
//
// Behavior:
//   - Inserts with ON CONFLICT DO NOTHING so two concurrent /start calls
//     end up with the same row.
//   - Refreshes username/first_name when Telegram reports new values.
//   - created is true only for the call that inserted the row.
func (r *UserRepository) Register(
	ctx context.Context,
	telegramID string,
	username, firstName *string,
) (*db.User, bool, error) {
	u := db.User{TelegramID: telegramID, Username: username, FirstName: firstName}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoNothing: true,
		}).
		Create(&u)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &u, true, nil
	}

	existing, err := r.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}

	updates := map[string]interface{}{}
	if username != nil && !sameString(existing.Username, username) {
		updates["username"] = *username
		existing.Username = username
	}
	if firstName != nil && !sameString(existing.FirstName, firstName) {
		updates["first_name"] = *firstName
		existing.FirstName = firstName
	}
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
			return nil, false, err
		}
	}
	return existing, false, nil
}

// Ban flags the user and deactivates their profile in one transaction.
// Returns the profile id (0 if the user has no profile) so callers can drop
// its cached snapshot.
func (r *UserRepository) Ban(ctx context.Context, userID uint64) (uint64, error) {
	var profileID uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.User{}).Where("id = ?", userID).Update("is_banned", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var p db.Profile
		err := tx.Select("id").Where("user_id = ?", userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		profileID = p.ID
		return tx.Model(&db.Profile{}).Where("id = ?", p.ID).Update("is_active", false).Error
	})
	return profileID, err
}

// ListNotBanned returns up to limit non-banned users with id > afterID,
// ordered by id. Used to walk all recipients of a broadcast in batches.
func (r *UserRepository) ListNotBanned(ctx context.Context, afterID uint64, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("is_banned = ? AND id > ?", false, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// CountNotBanned is the recipient count of a broadcast.
func (r *UserRepository) CountNotBanned(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("is_banned = ?", false).Count(&n).Error
	return n, err
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
