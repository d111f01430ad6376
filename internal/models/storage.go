package models

import (
	"fmt"
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidateRole returns an error unless role is exactly one of the known roles.
func ValidateRole(role string) error {
	switch role {
	case RoleUser, RoleAdmin:
		return nil
	}
	return fmt.Errorf("%w: role %q (valid: %s, %s)", ErrInvalidInput, role, RoleAdmin, RoleUser)
}

// InternalUser represents a user account stored in the internal database.
// Auth and identity only; preferences are stored as UserKeyValue entries.
type InternalUser struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// UserKeyValue represents a per-user configuration key-value pair.
type UserKeyValue struct {
	UserID   string    `json:"user_id"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}
