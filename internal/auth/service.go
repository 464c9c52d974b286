package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/common/metrics"
	"crm-gateway/internal/models"
	"crm-gateway/internal/repository"
)

const tokenTypeBearer = "Bearer"

// Service implements registration, login and account maintenance.
type Service struct {
	users  repository.UserRepository
	hasher *Hasher
	tokens *TokenIssuer
	log    logger.Logger
}

func NewService(users repository.UserRepository, hasher *Hasher, tokens *TokenIssuer, log logger.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

// Register creates a user unless the username is taken in any casing.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		metrics.AuthEvents.WithLabelValues("register", "duplicate").Inc()
		return nil, apperrors.NewDuplicateUserError(username)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to look up user: %w", err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			metrics.AuthEvents.WithLabelValues("register", "duplicate").Inc()
			return nil, apperrors.NewDuplicateUserError(username)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to create user: %w", err))
	}

	metrics.AuthEvents.WithLabelValues("register", "success").Inc()
	s.log.Info("User registered", map[string]interface{}{
		"userId":   user.ID,
		"username": user.Username,
	})

	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown users and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
			return nil, apperrors.NewInvalidCredentialsError()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to look up user: %w", err))
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
		s.log.Warn("Login rejected", map[string]interface{}{
			"userId": user.ID,
		})
		return nil, apperrors.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	s.log.Info("User logged in", map[string]interface{}{
		"userId": user.ID,
	})

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// VerifyToken returns the claims of a valid bearer token.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("Invalid or expired token")
	}
	return claims, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewUnauthorizedError("User no longer exists")
		}
		return apperrors.NewInternalError(fmt.Errorf("failed to look up user: %w", err))
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		metrics.AuthEvents.WithLabelValues("password_change", "failure").Inc()
		return apperrors.NewInvalidCredentialsError()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("failed to hash password: %w", err))
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewUnauthorizedError("User no longer exists")
		}
		return apperrors.NewInternalError(err)
	}

	metrics.AuthEvents.WithLabelValues("password_change", "success").Inc()
	s.log.Info("Password changed", map[string]interface{}{
		"userId": userID,
	})
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFoundError("user")
		}
		return apperrors.NewInternalError(err)
	}

	metrics.AuthEvents.WithLabelValues("delete", "success").Inc()
	s.log.Info("User deleted", map[string]interface{}{
		"userId": userID,
	})
	return nil
}
