package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupRequestNormalize(t *testing.T) {
	req := SignupRequest{
		Name:            "  Ada Lovelace  ",
		Email:           "  Ada@X.COM ",
		Password:        "Secret123",
		PasswordConfirm: "Secret123",
	}
	req.Normalize()

	assert.Equal(t, "ada@x.com", req.Email)
	assert.Equal(t, "Ada Lovelace", req.Name)
	assert.Equal(t, RoleUser, req.Role)
	require.NoError(t, req.Validate())
}

func TestSignupRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  SignupRequest
		want error
	}{
		{"missing name", SignupRequest{Email: "a@x.com", Password: "Secret123", PasswordConfirm: "Secret123", Role: RoleUser}, ErrValidation},
		{"bad email", SignupRequest{Name: "A", Email: "nope", Password: "Secret123", PasswordConfirm: "Secret123", Role: RoleUser}, ErrValidation},
		{"weak password", SignupRequest{Name: "A", Email: "a@x.com", Password: "short", PasswordConfirm: "short", Role: RoleUser}, ErrWeakPassword},
		{"mismatch", SignupRequest{Name: "A", Email: "a@x.com", Password: "Secret123", PasswordConfirm: "Secret124", Role: RoleUser}, ErrPasswordMismatch},
		{"unknown role", SignupRequest{Name: "A", Email: "a@x.com", Password: "Secret123", PasswordConfirm: "Secret123", Role: "root"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), tt.want)
		})
	}

	valid := SignupRequest{Name: "A", Email: "a@x.com", Password: "Secret123", PasswordConfirm: "Secret123", Role: RoleGuide}
	assert.NoError(t, valid.Validate())
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	pw := "sneaky"
	req := UpdateMeRequest{Password: &pw}
	assert.ErrorIs(t, req.Validate(), ErrValidation)
}

func TestPasswordChangedAfter(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never changed", func(t *testing.T) {
		u := User{}
		assert.False(t, u.PasswordChangedAfter(base))
	})

	t.Run("changed after issuance", func(t *testing.T) {
		changed := base.Add(5 * time.Second)
		u := User{PasswordChangedAt: &changed}
		assert.True(t, u.PasswordChangedAfter(base))
	})

	t.Run("changed before issuance", func(t *testing.T) {
		changed := base.Add(-5 * time.Second)
		u := User{PasswordChangedAt: &changed}
		assert.False(t, u.PasswordChangedAfter(base))
	})

	t.Run("same second counts as not-after", func(t *testing.T) {
		// Issue times carry second resolution; a token minted in the same
		// second as the change stays valid.
		changed := base.Add(500 * time.Millisecond)
		u := User{PasswordChangedAt: &changed}
		assert.False(t, u.PasswordChangedAfter(base))
	})
}

func TestRoles(t *testing.T) {
	for _, role := range []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin} {
		assert.True(t, IsValidRole(role))
	}
	assert.False(t, IsValidRole("superuser"))
	assert.False(t, IsValidRole(""))
}
