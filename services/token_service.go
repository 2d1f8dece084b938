package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTokenTTL  = 6 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Validation failure kinds. Expired is the only kind that may continue into
// the refresh path; the other two fail the request immediately.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

// TokenConfig configures the credential engine. Zero TTLs fall back to the
// defaults; a nil Clock uses time.Now.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// TokenService issues and validates the short-lived access credential and the
// long-lived refresh credential. Both are HS256 JWTs carrying the user id as
// subject; they are signed with independent secrets so one can never be
// presented as the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         func() time.Time
}

// NewTokenService constructs a TokenService with sane defaults.
func NewTokenService(cfg TokenConfig) *TokenService {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenService{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		clock:         clock,
	}
}

// AccessTTL returns the configured access-credential lifetime, used by the
// HTTP layer for cookie expiry.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh-credential lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived token with the user id as subject.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return s.issue(userID, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken signs a long-lived token. The caller persists it on the
// identity record so it can be revoked server-side before its own expiry.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return s.issue(userID, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) issue(userID string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret must be provided")
	}
	if userID == "" {
		return "", errors.New("subject must be provided")
	}

	now := s.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateAccessToken verifies signature and expiry of an access token and
// returns the embedded user id.
func (s *TokenService) ValidateAccessToken(tokenString string) (string, error) {
	return s.validate(tokenString, s.accessSecret)
}

// ValidateRefreshToken verifies signature and expiry of a refresh token and
// returns the embedded user id. The persistence check against the stored
// credential on the identity record happens at the call site, not here.
func (s *TokenService) ValidateRefreshToken(tokenString string) (string, error) {
	return s.validate(tokenString, s.refreshSecret)
}

func (s *TokenService) validate(tokenString string, secret []byte) (string, error) {
	if tokenString == "" {
		return "", ErrTokenMalformed
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		},
		jwt.WithTimeFunc(s.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrTokenSignature
		default:
			return "", ErrTokenMalformed
		}
	}
	if parsed == nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}
