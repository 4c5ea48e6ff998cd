package domain

import "time"

// User is an authenticated principal that owns batches and reconciliation projects.
type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// Owns reports whether the user may access an entity owned by ownerID.
func (u *User) Owns(ownerID int) bool {
	return u.IsAdmin || u.ID == ownerID
}
