package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careerforge/careerforge/internal/identity"
)

var ErrUserNotFound = errors.New("account: user not found")

// SignupBonusTokens is credited once when an account is first created.
const SignupBonusTokens int64 = 5_000

// User is an application account keyed by the identity provider's
// subject. TokenBalance mirrors the sum of the user's ledger deltas.
type User struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID      string       `gorm:"type:text;not null;uniqueIndex:ux_users_external_id" json:"external_id"`
	Email           string       `gorm:"type:text;not null" json:"email"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	Industry        string       `gorm:"type:text;not null" json:"industry"`
	ExperienceYears int          `gorm:"not null" json:"experience_years"`
	Skills          string       `gorm:"type:text;not null" json:"skills"`
	Bio             string       `gorm:"type:text;not null" json:"bio"`
	TokenBalance    int64        `gorm:"not null;default:0" json:"token_balance"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Industry        string `json:"industry"`
	ExperienceYears int    `json:"experience_years"`
	Skills          string `json:"skills"`
	Bio             string `json:"bio"`
}

type Service interface {
	// EnsureUser resolves the principal to an account, creating it (and
	// crediting the signup bonus) on first sight.
	EnsureUser(ctx context.Context, principal identity.Principal) (*User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (*User, error)
}
