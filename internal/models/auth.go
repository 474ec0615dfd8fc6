package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of access tokens minted by the auth backend. The
// portal user ID travels in the standard subject claim.
type JWTClaims struct {
	Email string   `json:"email"`
	Role  UserRole `json:"user_role"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's ID.
func (c *JWTClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// HasRole reports whether the token carries one of roles.
func (c *JWTClaims) HasRole(roles ...UserRole) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
