package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
)

// ProfileRepository provides data access for profiles, including the two
// candidate sources of the recommendation queue: nearest neighbours by
// embedding and a random sample.
type ProfileRepository struct {
	db     *gorm.DB
	probes int
}

// NewProfileRepository creates a new repository bound to the given DB connection.
// probes is the ivfflat.probes value used for similarity queries on PostgreSQL
// (<= 0 keeps the server default).
func NewProfileRepository(database *gorm.DB, probes int) *ProfileRepository {
	return &ProfileRepository{db: database, probes: probes}
}

func (r *ProfileRepository) Get(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveByUserIDs returns active profiles keyed by user id.
func (r *ProfileRepository) GetActiveByUserIDs(ctx context.Context, userIDs []uint64) (map[uint64]*db.Profile, error) {
	out := make(map[uint64]*db.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		out[profiles[i].UserID] = &profiles[i]
	}
	return out, nil
}

// Create inserts a profile. A second profile for the same user fails with
// gorm.ErrDuplicatedKey (uq_profiles_user_id).
func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update writes only the given fields (Go field names), zero values included.
func (r *ProfileRepository) Update(ctx context.Context, p *db.Profile, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "UpdatedAt")
	return r.db.WithContext(ctx).
		Model(p).
		Select(fields).
		Updates(p).Error
}

// SimilarProfiles returns up to limit active profiles ordered by cosine
// distance to vec, skipping the users in exclude.
//
// Behavior:
//   - PostgreSQL: ORDER BY embedding <=> vec, served by the ivfflat index.
//     probes is applied with SET LOCAL so it never leaks to other pooled
//     connections.
//   - Other dialects: exact scan in process.
//   - Profiles without an embedding are never returned.
func (r *ProfileRepository) SimilarProfiles(
	ctx context.Context,
	vec []float32,
	exclude []uint64,
	limit int,
) ([]db.Profile, error) {
	if len(vec) == 0 || limit <= 0 {
		return nil, nil
	}
	if !db.IsPostgres(r.db) {
		return r.similarInProcess(ctx, vec, exclude, limit)
	}

	var profiles []db.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.probes > 0 {
			// SET does not accept bind parameters
			if err := tx.Exec(fmt.Sprintf("SET LOCAL ivfflat.probes = %d", r.probes)).Error; err != nil {
				return err
			}
		}
		q := candidates(tx, exclude).
			Where("embedding IS NOT NULL").
			Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{pgvector.NewVector(vec)}},
			}).
			Limit(limit)
		return q.Find(&profiles).Error
	})
	return profiles, err
}

func (r *ProfileRepository) similarInProcess(
	ctx context.Context,
	vec []float32,
	exclude []uint64,
	limit int,
) ([]db.Profile, error) {
	var all []db.Profile
	err := candidates(r.db.WithContext(ctx), exclude).
		Where("embedding IS NOT NULL").
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	type scored struct {
		p    db.Profile
		dist float64
	}
	ranked := make([]scored, 0, len(all))
	for _, p := range all {
		if p.Embedding == nil {
			continue
		}
		ranked = append(ranked, scored{p: p, dist: embedding.CosineDistance(vec, p.Embedding.Slice())})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]db.Profile, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].p
	}
	return out, nil
}

// RandomProfiles samples up to limit active profiles uniformly, skipping the
// users in exclude. RANDOM() is understood by both PostgreSQL and SQLite.
func (r *ProfileRepository) RandomProfiles(ctx context.Context, exclude []uint64, limit int) ([]db.Profile, error) {
	if limit <= 0 {
		return nil, nil
	}
	var profiles []db.Profile
	err := candidates(r.db.WithContext(ctx), exclude).
		Order("RANDOM()").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// ExportFilter narrows the admin CSV export.
type ExportFilter struct {
	Limit    int
	Offset   int
	IsActive *bool
}

// ExportRow pairs a profile with its owner.
type ExportRow struct {
	Profile db.Profile
	User    db.User
}

// ListForExport returns profiles with their users, newest first.
func (r *ProfileRepository) ListForExport(ctx context.Context, f ExportFilter) ([]ExportRow, error) {
	q := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Order("id DESC")
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var profiles []db.Profile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	userIDs := make([]uint64, len(profiles))
	for i, p := range profiles {
		userIDs[i] = p.UserID
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]ExportRow, len(profiles))
	for i, p := range profiles {
		rows[i] = ExportRow{Profile: p, User: byID[p.UserID]}
	}
	return rows, nil
}

// candidates is the shared WHERE for both candidate sources.
// An empty NOT IN list would match nothing, so it is only added when needed.
func candidates(q *gorm.DB, exclude []uint64) *gorm.DB {
	q = q.Model(&db.Profile{}).Where("is_active = ?", true)
	if len(exclude) > 0 {
		q = q.Where("user_id NOT IN ?", exclude)
	}
	return q
}
