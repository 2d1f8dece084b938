package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"convo_server/apperrors"
	"convo_server/models"
	"convo_server/services"
)

const (
	// AccessTokenCookie may also arrive as a bearer header; the refresh
	// credential travels in its cookie only.
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware authenticates every protected request and runs the
// credential rotation protocol: a valid access token proceeds directly, an
// expired one falls through to the refresh credential, anything else fails
// immediately with no refresh attempt.
type AuthMiddleware struct {
	Users *services.UserService
}

func NewAuthMiddleware(users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{Users: users}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := extractAccessToken(r)
		if accessToken == "" {
			writeError(w, apperrors.Unauthenticated("missing access token"))
			return
		}

		userID, err := m.Users.Tokens.ValidateAccessToken(accessToken)
		switch {
		case err == nil:
			user, loadErr := m.Users.GetByID(r.Context(), userID)
			if loadErr != nil {
				writeError(w, apperrors.Unauthenticated("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))

		case errors.Is(err, services.ErrTokenExpired):
			cookie, cookieErr := r.Cookie(RefreshTokenCookie)
			if cookieErr != nil || cookie.Value == "" {
				writeError(w, apperrors.Unauthenticated("access token expired"))
				return
			}
			user, newAccess, refreshErr := m.Users.RefreshAccess(r.Context(), cookie.Value)
			if refreshErr != nil {
				writeError(w, apperrors.Unauthenticated("access token expired and refresh token rejected"))
				return
			}
			SetAccessCookie(w, newAccess, m.Users.Tokens.AccessTTL())
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))

		default:
			// Malformed or bad signature: no refresh attempt.
			writeError(w, apperrors.Unauthenticated("invalid access token"))
		}
	})
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser returns the identity attached by the middleware.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// SetAccessCookie delivers a fresh access credential to the client.
func SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// SetRefreshCookie delivers the refresh credential; cookie only, never a header.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearAuthCookies removes both credentials client-side.
func ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
