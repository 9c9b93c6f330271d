package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/http/middleware"
	"github.com/trailhead-tours/trailhead/internal/platform/token"
	"github.com/trailhead-tours/trailhead/internal/repo/repotest"
)

func setup(t *testing.T) (*middleware.Auth, *repotest.MemoryUserRepository, *token.Service) {
	t.Helper()
	repo := repotest.NewMemoryUserRepository()
	tokens := token.NewService("test-secret", time.Hour)
	return middleware.NewAuth(tokens, repo), repo, tokens
}

func seedUser(repo *repotest.MemoryUserRepository, role string) *domain.User {
	u := &domain.User{
		Name:         "Grace Hopper",
		Email:        "grace@x.com",
		Role:         role,
		PasswordHash: "$argon2id$not-checked-here",
		Active:       true,
	}
	repo.Put(u)
	return u
}

// echoUser responds with the resolved identity, or 200 "anonymous".
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r)
		if user == nil {
			w.Write([]byte("anonymous"))
			return
		}
		json.NewEncoder(w).Encode(user)
	})
}

func TestProtectRejectsAllFailuresUniformly(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	valid, err := tokens.Sign(user.ID)
	require.NoError(t, err)

	expired, err := token.NewService("test-secret", -time.Minute).Sign(user.ID)
	require.NoError(t, err)

	wrongKey, err := token.NewService("other-secret", time.Hour).Sign(user.ID)
	require.NoError(t, err)

	ghost, err := tokens.Sign(user.ID + 99)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"malformed token", "not.a.jwt"},
		{"tampered signature", wrongKey},
		{"expired token", expired},
		{"subject no longer exists", ghost},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			auth.Protect(echoUser()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			bodies = append(bodies, rec.Body.String())
		})
	}

	// Every failure mode produces the identical body: no oracle on the cause.
	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}

	// Sanity: the valid token passes.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grace@x.com")
}

func TestProtectRejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	tok, err := tokens.Sign(user.ID)
	require.NoError(t, err)

	// Password changes two seconds after issuance: the token is now
	// permanently invalid even though it is unexpired and correctly signed.
	changed := time.Now().Add(2 * time.Second)
	stored := repo.Get(user.ID)
	stored.PasswordChangedAt = &changed
	repo.Put(stored)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectAcceptsTokenIssuedAfterPasswordChange(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	changed := time.Now().Add(-time.Hour)
	stored := repo.Get(user.ID)
	stored.PasswordChangedAt = &changed
	repo.Put(stored)

	tok, err := tokens.Sign(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectRejectsDeactivatedUser(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	tok, err := tokens.Sign(user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(context.Background(), user.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectAcceptsCookieToken(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	tok, err := tokens.Sign(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tok})
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizationHeaderTakesPrecedenceOverCookie(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	valid, err := tokens.Sign(user.ID)
	require.NoError(t, err)

	// Garbage in the header must lose even though the cookie is valid.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: valid})
	rec := httptest.NewRecorder()
	auth.Protect(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMaybeUserNeverFails(t *testing.T) {
	auth, repo, tokens := setup(t)
	user := seedUser(repo, domain.RoleUser)

	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  string
	}{
		{"no token", func(t *testing.T) string { return "" }, "anonymous"},
		{"garbage token", func(t *testing.T) string { return "garbage" }, "anonymous"},
		{"expired token", func(t *testing.T) string {
			tok, err := token.NewService("test-secret", -time.Minute).Sign(user.ID)
			require.NoError(t, err)
			return tok
		}, "anonymous"},
		{"valid token", func(t *testing.T) string {
			tok, err := tokens.Sign(user.ID)
			require.NoError(t, err)
			return tok
		}, "grace@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tok := tt.token(t); tok != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tok})
			}
			rec := httptest.NewRecorder()
			auth.MaybeUser(echoUser()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRestrictToShortCircuits(t *testing.T) {
	auth, repo, tokens := setup(t)
	guide := seedUser(repo, domain.RoleGuide)

	tok, err := tokens.Sign(guide.ID)
	require.NoError(t, err)

	handlerRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	chain := auth.Protect(middleware.RestrictTo(domain.RoleAdmin)(next))

	req := httptest.NewRequest(http.MethodDelete, "/admin-thing", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	// The gate must hard-stop the chain: no handler code may run after a
	// rejection.
	assert.False(t, handlerRan)
}

func TestRestrictToAllowsMatchingRole(t *testing.T) {
	auth, repo, tokens := setup(t)
	admin := seedUser(repo, domain.RoleAdmin)

	tok, err := tokens.Sign(admin.ID)
	require.NoError(t, err)

	handlerRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	chain := auth.Protect(middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide)(next))

	req := httptest.NewRequest(http.MethodDelete, "/admin-thing", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerRan)
}

func TestRestrictToWithoutAuthenticationIs401(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	middleware.RestrictTo(domain.RoleAdmin)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
