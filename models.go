package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OAuth providers we can federate with. Basic marks accounts registered with
// a password.
const (
	ProviderBasic  = "basic"
	ProviderKakao  = "kakao"
	ProviderGoogle = "google"
)

// User is the board account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SerialID      string     `bun:"serial_id,notnull,unique" json:"serial_id,omitempty"`
	Nickname      string     `bun:"nickname" json:"nickname,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Provider      string     `bun:"provider,notnull" json:"provider,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	Registered    bool       `bun:"is_registered" json:"is_registered,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// ProfileComplete reports whether the account carries every locally required
// field. OAuth2 sign-ins that upsert a bare account stay incomplete until the
// registration-completion endpoint fills the rest in.
func (u *User) ProfileComplete() bool {
	if u == nil {
		return false
	}
	return u.Registered && u.Nickname != "" && u.Email != ""
}

// EnsureRole backfills the default role for rows created before roles were
// mandatory.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleUser
	}
}
