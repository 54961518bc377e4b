// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored or transmitted role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is an account. PasswordHash and PasswordSalt never leave the server.
type User struct {
	ID                string     `json:"id"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	PhoneNumber       *string    `json:"phoneNumber,omitempty"`
	PasswordHash      []byte     `json:"-"`
	PasswordSalt      []byte     `json:"-"`
	Role              Role       `json:"role"`
	EmailConfirmed    bool       `json:"emailConfirmed"`
	ConfirmationToken *string    `json:"-"`
	LastLoginAt       *time.Time `json:"lastLoginDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}
