package repository

import (
	"context"
	"errors"
	"time"

	"crm-gateway/internal/models"
)

var (
	ErrUserNotFound      = errors.New("USER_NOT_FOUND")
	ErrDuplicateUsername = errors.New("DUPLICATE_USERNAME")
)

// UserRepository stores gateway accounts. Username lookups ignore case.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// stamp fills the timestamps of a new user.
func stamp(user *models.User) {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}
