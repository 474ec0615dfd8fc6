package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "glee-auth"}, nil)

	token, err := svc.IssueToken("user-1", "director@example.edu", models.RoleInstructor, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "director@example.edu", claims.Email)
	assert.True(t, claims.HasRole(models.RoleAdmin, models.RoleInstructor))
	assert.False(t, claims.HasRole(models.RoleStudent))
}

func TestAuthServiceRejectsExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"}, nil)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.IssueToken("user-1", "", models.RoleStudent, time.Minute)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Equal(t, "token expired", appErr.Message)
}

func TestAuthServiceRejectsWrongIssuerAndSecret(t *testing.T) {
	issuer := NewAuthService(AuthConfig{Secret: "secret", Issuer: "someone-else"}, nil)
	token, err := issuer.IssueToken("user-1", "", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{Secret: "secret", Issuer: "glee-auth"}, nil).ValidateToken(token)
	assert.Error(t, err)

	_, err = NewAuthService(AuthConfig{Secret: "other"}, nil).ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceRejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"}, nil)

	claims := models.JWTClaims{Role: "authenticated", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	noExp := models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceIssueValidation(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"}, nil)
	_, err := svc.IssueToken("", "", models.RoleAdmin, 0)
	assert.Error(t, err)
	_, err = svc.IssueToken("user-1", "", "guest", 0)
	assert.Error(t, err)
}
