package db

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDim is the size of the profile description embedding.
const EmbeddingDim = 384

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type ActionType string

const (
	ActionLike    ActionType = "like"
	ActionDislike ActionType = "dislike"
	ActionReport  ActionType = "report"
)

// User is the identity anchor, created on first bot contact.
type User struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	TelegramID string    `gorm:"uniqueIndex:ix_users_telegram_id;size:50;not null"`
	Username   *string   `gorm:"size:100"`
	FirstName  *string   `gorm:"size:100"`
	IsBanned   bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Media is a photo or video reference attached to a profile.
type Media struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

// MediaList is stored as JSON (jsonb on postgres).
type MediaList = datatypes.JSONSlice[Media]

// Profile is one-to-one with User.
//
// Indexes:
//   - user_id unique: at most one profile per user.
//   - idx_profiles_active / idx_profiles_gender: candidate filtering.
//   - idx_profiles_embedding: ivfflat (vector_cosine_ops), created in migrate.go
//     because gorm tags cannot express the operator class.
type Profile struct {
	ID          uint64           `gorm:"primaryKey;autoIncrement"`
	UserID      uint64           `gorm:"uniqueIndex:uq_profiles_user_id;not null"`
	Name        string           `gorm:"size:100;not null"`
	Description string           `gorm:"size:1000;not null"`
	Gender      Gender           `gorm:"size:16;index:idx_profiles_gender;check:chk_profiles_gender,gender IN ('male','female','other')"`
	Age         *int
	Media       MediaList
	Embedding   *pgvector.Vector `gorm:"type:vector(384)"`
	IsActive    bool             `gorm:"not null;index:idx_profiles_active"`
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime"`
}

// Action is a directed swipe edge from one user to another.
//
// Constraints:
//   - chk_actions_not_self: from_user_id <> to_user_id.
//   - uq_actions_from_to: one action per ordered pair.
type Action struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	FromUserID   uint64     `gorm:"not null;uniqueIndex:uq_actions_from_to,priority:1;index:idx_actions_from_user;check:chk_actions_not_self,from_user_id <> to_user_id"`
	ToUserID     uint64     `gorm:"not null;uniqueIndex:uq_actions_from_to,priority:2;index:idx_actions_to_user"`
	ActionType   ActionType `gorm:"size:16;not null;index:idx_actions_type;check:chk_actions_type,action_type IN ('like','dislike','report')"`
	ReportReason *string    `gorm:"size:200"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`

	FromUser *User `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	ToUser   *User `gorm:"foreignKey:ToUserID;constraint:OnDelete:CASCADE"`
}

func (Action) TableName() string { return "user_actions" }

// Match is an undirected pairing stored canonically (User1ID < User2ID).
//
// Constraints:
//   - chk_matches_order: user1_id < user2_id.
//   - uq_matches_pair: a pair matches at most once.
type Match struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID    uint64    `gorm:"not null;uniqueIndex:uq_matches_pair,priority:1;index:idx_matches_user1;check:chk_matches_order,user1_id < user2_id"`
	User2ID    uint64    `gorm:"not null;uniqueIndex:uq_matches_pair,priority:2;index:idx_matches_user2"`
	IsNotified bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	User1 *User `gorm:"foreignKey:User1ID;constraint:OnDelete:CASCADE"`
	User2 *User `gorm:"foreignKey:User2ID;constraint:OnDelete:CASCADE"`
}

// Other returns the id of the partner on the other side of the match.
func (m Match) Other(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// CanonicalPair orders two ids the way matches are stored.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Models lists every table in migration order.
func Models() []any {
	return []any{&User{}, &Profile{}, &Action{}, &Match{}}
}
