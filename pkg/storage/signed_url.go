package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed, tampered with or expired.
var ErrInvalidToken = errors.New("invalid download token")

const downloadAudience = "roster-download"

type downloadClaims struct {
	File string `json:"file"`
	jwt.RegisteredClaims
}

// Download describes the file a token grants access to.
type Download struct {
	JobID     string
	File      string
	ExpiresAt time.Time
}

// SignedURLSigner issues short lived HS256 tokens for export downloads.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl defaults to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, file string) (string, time.Time, error) {
	if jobID == "" || file == "" {
		return "", time.Time{}, errors.New("job id and file required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)
	claims := downloadClaims{
		File: file,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   jobID,
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates a token. With allowExpired the expiry check is skipped so
// cleanup can still resolve the file behind an old link.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Download, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithTimeFunc(s.now),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	var claims downloadClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Download{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.File == "" {
		return Download{}, ErrInvalidToken
	}
	download := Download{JobID: claims.Subject, File: claims.File}
	if claims.ExpiresAt != nil {
		download.ExpiresAt = claims.ExpiresAt.Time
	}
	return download, nil
}
