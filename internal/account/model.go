package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Disabled     bool      `json:"disabled"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Details is the public view of an account.
type Details struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Disabled bool   `json:"disabled"`
	Role     Role   `json:"role"`
}

func (a *Account) Details() Details {
	return Details{
		Username: a.Username,
		Email:    a.Email,
		Disabled: a.Disabled,
		Role:     a.Role,
	}
}

// Update lists the fields to change. Nil fields are left untouched.
type Update struct {
	Email        *string
	Role         *Role
	Disabled     *bool
	PasswordHash *string
}

func (u Update) IsEmpty() bool {
	return u.Email == nil && u.Role == nil && u.Disabled == nil && u.PasswordHash == nil
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
