package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/service/dto"
	"github.com/oggyb/gymbro-match/internal/utils/validation"
)

// Service owns profile CRUD and the recommendation queue.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	actions  *repository.ActionRepository
}

// NewProfileService creates a profile service with dependencies from AppContext.
func NewProfileService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB, appCtx.Config.DB.VectorProbes),
		actions:  repository.NewActionRepository(appCtx.DB),
	}
}

// CreateInput is the body of POST /profile.
type CreateInput struct {
	Name        string      `json:"name" validate:"required,min=2,max=100"`
	Description string      `json:"description" validate:"required,min=10,max=1000,wordy"`
	Gender      string      `json:"gender" validate:"required,oneof=male female other"`
	Age         *int        `json:"age" validate:"omitempty,min=16,max=100"`
	Media       []dto.Media `json:"media" validate:"max=10,dive"`
}

// UpdateInput is the body of PATCH /profile. Nil fields are left untouched;
// a non-nil empty media list clears the media.
type UpdateInput struct {
	Name        *string     `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string     `json:"description" validate:"omitempty,min=10,max=1000,wordy"`
	Gender      *string     `json:"gender" validate:"omitempty,oneof=male female other"`
	Age         *int        `json:"age" validate:"omitempty,min=16,max=100"`
	Media       []dto.Media `json:"media" validate:"omitempty,max=10,dive"`
	IsActive    *bool       `json:"is_active"`
}

// Get returns the user's own profile, active or not.
func (s *Service) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrProfileNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

// Create stores the user's first profile and its description embedding.
//
// Behavior:
//   - Text fields are trimmed and whitespace-normalised before validation.
//   - A second profile for the same user → ErrProfileAlreadyExists, both on
//     the pre-check and on the unique index (concurrent creates).
//   - The profile starts active.
func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*db.Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = embedding.CleanText(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByUserID(ctx, userID); err == nil {
		return nil, svcErr.ErrProfileAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}

	vec, err := s.embed(ctx, in.Description)
	if err != nil {
		return nil, err
	}

	p := &db.Profile{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Gender:      db.Gender(in.Gender),
		Age:         in.Age,
		Media:       dto.ToMediaList(in.Media),
		Embedding:   vec,
		IsActive:    true,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.ErrProfileAlreadyExists
		}
		s.appCtx.Logger.Error("create profile failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("profile created", "user_id", userID, "profile_id", p.ID)
	return p, nil
}

// Update applies a partial update to the user's profile.
//
// Behavior:
//   - Only the fields present in the input are written.
//   - A changed description regenerates the embedding.
//   - The cached snapshot is dropped so queued copies are re-read from the DB.
func (s *Service) Update(ctx context.Context, userID uint64, in UpdateInput) (*db.Profile, error) {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Description != nil {
		v := embedding.CleanText(*in.Description)
		in.Description = &v
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if in.Name != nil {
		p.Name = *in.Name
		fields = append(fields, "Name")
	}
	if in.Gender != nil {
		p.Gender = db.Gender(*in.Gender)
		fields = append(fields, "Gender")
	}
	if in.Age != nil {
		p.Age = in.Age
		fields = append(fields, "Age")
	}
	if in.Media != nil {
		p.Media = dto.ToMediaList(in.Media)
		fields = append(fields, "Media")
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
		fields = append(fields, "IsActive")
	}
	if in.Description != nil && *in.Description != p.Description {
		vec, err := s.embed(ctx, *in.Description)
		if err != nil {
			return nil, err
		}
		p.Description = *in.Description
		p.Embedding = vec
		fields = append(fields, "Description", "Embedding")
	}
	if len(fields) == 0 {
		return p, nil
	}

	if err := s.profiles.Update(ctx, p, fields...); err != nil {
		s.appCtx.Logger.Error("update profile failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.InvalidateProfile(ctx, p.ID); err != nil {
		s.appCtx.Logger.Warn("invalidate profile snapshot failed", "profile_id", p.ID, "err", err)
	}

	s.appCtx.Logger.Debug("profile updated", "user_id", userID, "fields", fields)
	return p, nil
}

func (s *Service) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	vec, err := s.appCtx.Embedder.Embed(ctx, text)
	if err != nil {
		s.appCtx.Logger.Error("embedding failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if isZero(vec) {
		// nothing to rank by; the profile is served through random sampling
		return nil, nil
	}
	v := pgvector.NewVector(vec)
	return &v, nil
}

func isZero(vec []float32) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}
