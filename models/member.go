package models

import "time"

// Role is the authority granted to a member.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AuthInfo holds the email verification and OAuth identity state of a member.
type AuthInfo struct {
	EmailAuthToken  string    `gorm:"size:64" json:"-"`
	EmailAuthExpiry time.Time `json:"-"`
	Authenticated   bool      `gorm:"not null" json:"authenticated"`
	OAuthProvider   string    `gorm:"column:oauth_provider;size:32;index:idx_members_oauth" json:"oauth_provider,omitempty"`
	OAuthProviderID string    `gorm:"column:oauth_provider_id;size:255;index:idx_members_oauth" json:"-"`
}

// Member represents a forum account. Username is the member's email address.
// Passwords are stored as bcrypt hashes only.
type Member struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:255;not null;index" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Nickname  string    `gorm:"size:64;not null;index" json:"nickname"`
	Signature string    `gorm:"size:255" json:"signature"`
	Role      Role      `gorm:"size:16;not null" json:"role"`
	AuthInfo  AuthInfo  `gorm:"embedded;embeddedPrefix:auth_" json:"auth_info"`
	Deleted   bool      `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the member holds the ADMIN role.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
