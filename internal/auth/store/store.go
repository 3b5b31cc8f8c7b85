// Package store persists login accounts.
package store

import (
	"context"

	"taptrail/internal/auth/models"
)

// UserStore maps emails to accounts. Create returns sentinel.ErrConflict when
// the email is taken; FindByEmail returns sentinel.ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}
