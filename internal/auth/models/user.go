// Package models defines administrative login accounts and their roles.
package models

import (
	"net/mail"
	"strings"
	"time"

	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
)

// Role scopes what an authenticated user may do. Kiosks authenticate like
// users but may only submit scans.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleKiosk    Role = "kiosk"
	RoleReadonly Role = "readonly"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:    {},
	RoleManager:  {},
	RoleKiosk:    {},
	RoleReadonly: {},
}

// Validate rejects unknown roles.
func (r Role) Validate() error {
	if _, ok := validRoles[r]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return nil
}

// User is a login account. PasswordHash is a bcrypt hash, never the password.
type User struct {
	ID           id.UserID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// New constructs an active user after validating email and role.
func New(email, passwordHash, displayName string, role Role, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = email
	}
	return &User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
	}, nil
}
