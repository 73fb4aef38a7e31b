package domain

import "time"

// Role identifies the audience a user belongs to.
type Role string

const (
	RoleAdmin           Role = "admin"
	RolePartner         Role = "partner"
	RoleUnauthenticated Role = "unauthenticated"
)

// Valid reports whether r is one of the two roles a user can authenticate as.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePartner
}

// User models an admin or partner account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the verified assertion produced by the auth layer.
type Identity struct {
	UserID string
	Role   Role
}
