package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/reportdesk/report-desk-api/internal/middleware"
	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/internal/service"
)

func userIDFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return ""
	}
	id, ok := value.(string)
	if !ok {
		return ""
	}
	return id
}

func claimsFromContext(c *gin.Context) *models.IdentityClaims {
	value, exists := c.Get(middleware.ContextIdentityKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.IdentityClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext carries the token's display attributes along with the
// verified user id so first-contact moderator records get a name.
func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{ID: userIDFromContext(c)}
	if claims := claimsFromContext(c); claims != nil {
		actor.FullName = claims.FullName
		actor.Email = claims.Email
	}
	return actor
}
