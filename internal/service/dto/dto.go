// Package dto holds the JSON shapes shared by several HTTP handlers.
package dto

import (
	"time"

	"github.com/oggyb/gymbro-match/internal/db"
)

type User struct {
	ID         uint64    `json:"id"`
	TelegramID string    `json:"telegram_id"`
	Username   *string   `json:"username"`
	FirstName  *string   `json:"first_name"`
	IsBanned   bool      `json:"is_banned"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromUser(u *db.User) User {
	return User{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		IsBanned:   u.IsBanned,
		CreatedAt:  u.CreatedAt,
	}
}

type Media struct {
	Type   string `json:"type" validate:"required,oneof=photo video"`
	FileID string `json:"file_id" validate:"required,max=255"`
}

type Profile struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Gender      string    `json:"gender"`
	Age         *int      `json:"age"`
	Media       []Media   `json:"media"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

func FromProfile(p *db.Profile) Profile {
	media := make([]Media, 0, len(p.Media))
	for _, m := range p.Media {
		media = append(media, Media{Type: m.Type, FileID: m.FileID})
	}
	return Profile{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Gender:      string(p.Gender),
		Age:         p.Age,
		Media:       media,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToMediaList converts validated request media into the stored form.
func ToMediaList(in []Media) db.MediaList {
	out := make(db.MediaList, 0, len(in))
	for _, m := range in {
		out = append(out, db.Media{Type: m.Type, FileID: m.FileID})
	}
	return out
}
