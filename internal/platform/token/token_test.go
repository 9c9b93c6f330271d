package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	signed, err := svc.Sign(42)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.Sub)
	assert.WithinDuration(t, time.Now(), claims.IssuedAtTime(), 5*time.Second)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	signed, err := svc.Sign(42)
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = svc.Verify(tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	signed, err := signer.Sign(42)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	signed, err := svc.Sign(42)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTwoSignCallsProduceIndependentTokens(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	first, err := svc.Sign(42)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // iat has second resolution
	second, err := svc.Sign(42)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, signed := range []string{first, second} {
		claims, err := svc.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.Sub)
	}
}
