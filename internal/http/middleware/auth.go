package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/http/response"
	"github.com/trailhead-tours/trailhead/internal/platform/token"
	"github.com/trailhead-tours/trailhead/internal/repo/postgres"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

type ctxKey string

const ctxUser ctxKey = "current_user"

// SessionCookie is the cookie carrying the session token for browser clients.
const SessionCookie = "jwt"

// Auth authenticates requests against the active-only identity view and
// enforces the password-change invalidation invariant.
type Auth struct {
	tokens *token.Service
	users  postgres.UserRepository
}

func NewAuth(tokens *token.Service, users postgres.UserRepository) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// extractToken returns the bearer token, header first, cookie as fallback.
func extractToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// resolve runs the full verification pipeline: token signature and expiry,
// identity existence on the active-only view, and issue-time vs
// password_changed_at. The returned error names the real cause for logging;
// callers must not surface it to clients.
func (a *Auth) resolve(r *http.Request) (*domain.User, error) {
	raw := extractToken(r)
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := a.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	user, err := a.users.FindActiveByID(r.Context(), claims.Sub)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	// Any token issued before the most recent password change is permanently
	// rejected, even if otherwise unexpired and correctly signed.
	if user.PasswordChangedAfter(claims.IssuedAtTime()) {
		return nil, domain.ErrPasswordChangedSince
	}

	return user, nil
}

// Protect rejects unauthenticated requests. Every failure mode produces the
// same generic 401 body; the specific cause is logged only.
func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		if err != nil {
			logger.DebugContext(r.Context(), "authentication failed", "reason", err.Error())
			response.Unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUser, user)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MaybeUser attaches the identity when a valid session is present and passes
// through anonymously otherwise. Used for surfaces that render differently
// for logged-in users; verification failures are never surfaced.
func (a *Auth) MaybeUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUser, user)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestrictTo gates by role after Protect. A role mismatch writes 403 and
// returns; the downstream handler never runs.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil {
				response.Unauthorized(w)
				return
			}
			if !allowed[user.Role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the authenticated identity, or nil on anonymous
// requests.
func CurrentUser(r *http.Request) *domain.User {
	v := r.Context().Value(ctxUser)
	if v == nil {
		return nil
	}
	return v.(*domain.User)
}
