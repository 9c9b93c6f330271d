package password

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher() *Hasher {
	// Minimal cost so tests stay fast; production params come from config.
	return NewHasher(Params{
		MemoryKiB:     1024,
		Iterations:    1,
		Parallelism:   1,
		MaxConcurrent: 2,
	})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()
	ctx := context.Background()

	digest, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", digest)
	assert.Contains(t, digest, "$argon2id$")

	match, err := h.Verify(ctx, "Secret123", digest)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = h.Verify(ctx, "Secret124", digest)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher()
	ctx := context.Background()

	first, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "Secret123")
	require.NoError(t, err)

	// Fresh salt per call: same plaintext, different digests, both verify.
	assert.NotEqual(t, first, second)

	for _, digest := range []string{first, second} {
		match, err := h.Verify(ctx, "Secret123", digest)
		require.NoError(t, err)
		assert.True(t, match)
	}
}

func TestHashQueueHonorsCancellation(t *testing.T) {
	h := testHasher()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Secret123")
	assert.Error(t, err)
}

func TestDummyVerifyNeverMatches(t *testing.T) {
	h := testHasher()
	// Must not panic and must burn a real comparison.
	h.DummyVerify(context.Background())
}
