package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/middleware"
	"crm-gateway/internal/models"
	"crm-gateway/internal/validators"
)

// AuthService is the account API used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteUser(ctx context.Context, userID string) error
}

type AuthHandler struct {
	auth AuthService
	errs *apperrors.ErrorHandler
}

func NewAuthHandler(auth AuthService, errs *apperrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{auth: auth, errs: errs}
}

// Register creates an account. 201 {message, user_id}.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindPayload(c, h.errs, "user", validators.Registration, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindPayload(c, h.errs, "login", validators.Login, &req) {
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.PasswordChangeRequest
	if !bindPayload(c, h.errs, "password", validators.PasswordChange, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteUser removes the authenticated account.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	if err := h.auth.DeleteUser(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
