package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reportdesk/report-desk-api/internal/models"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
)

// IdentityService resolves bearer credentials issued by the external
// identity provider into stable user identifiers. Token issuance, refresh
// and account management all live with the provider; this service only
// verifies.
type IdentityService struct {
	secret string
}

// NewIdentityService constructs the resolver.
func NewIdentityService(secret string) *IdentityService {
	return &IdentityService{secret: secret}
}

// Resolve verifies the token and returns its claims.
func (s *IdentityService) Resolve(tokenString string) (*models.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.IdentityClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no user id")
	}

	return claims, nil
}
