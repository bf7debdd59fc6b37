package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims is the payload of the bearer token issued by the external
// identity provider. Only the subject user id is load-bearing; the display
// attributes are carried along for notifications.
type IdentityClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
