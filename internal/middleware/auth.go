package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"crm-gateway/internal/auth"
	apperrors "crm-gateway/internal/common/errors"
)

// Context keys set by Authenticate.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token before any route logic runs.
func Authenticate(verifier TokenVerifier, errs *apperrors.ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			errs.Respond(c, apperrors.NewUnauthorizedError("Missing or malformed Authorization header"))
			return
		}

		claims, err := verifier.VerifyToken(token)
		if err != nil {
			errs.Respond(c, err)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" on unauthenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
