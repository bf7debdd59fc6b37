package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reportdesk/report-desk-api/internal/models"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
	"github.com/reportdesk/report-desk-api/pkg/response"
)

// Context keys populated by the identity middleware.
const (
	ContextUserIDKey   = "user_id"
	ContextIdentityKey = "identity"
)

type identityResolver interface {
	Resolve(token string) (*models.IdentityClaims, error)
}

// RequireIdentity verifies the bearer token and aborts unauthenticated
// requests. The verified user id is stored on the context for handlers.
func RequireIdentity(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}
		claims, err := resolver.Resolve(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextIdentityKey, claims)
		c.Next()
	}
}

// OptionalIdentity resolves the bearer token when present but lets
// anonymous requests through. Intake does not require an account; a valid
// token simply enriches the stored submission.
func OptionalIdentity(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if claims, err := resolver.Resolve(token); err == nil {
				c.Set(ContextUserIDKey, claims.UserID)
				c.Set(ContextIdentityKey, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
