package password

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/sync/semaphore"
)

// Hasher wraps argon2id with an explicit cost profile and a bound on how many
// hash computations may run at once. Hashing is deliberately slow; without the
// bound a login burst could pin every scheduler thread on key derivation.
type Hasher struct {
	params *argon2id.Params
	sem    *semaphore.Weighted
}

type Params struct {
	MemoryKiB     int
	Iterations    int
	Parallelism   int
	MaxConcurrent int
}

func NewHasher(p Params) *Hasher {
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = 4
	}
	return &Hasher{
		params: &argon2id.Params{
			Memory:      uint32(p.MemoryKiB),
			Iterations:  uint32(p.Iterations),
			Parallelism: uint8(p.Parallelism),
			SaltLength:  16,
			KeyLength:   32,
		},
		sem: semaphore.NewWeighted(int64(p.MaxConcurrent)),
	}
}

// Hash derives a self-describing PHC digest with a fresh random salt.
// Acquisition of a worker slot honors ctx; once started, the computation runs
// to completion regardless of cancellation.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("hash queue: %w", err)
	}
	defer h.sem.Release(1)

	digest, err := argon2id.CreateHash(plaintext, h.params)
	if err != nil {
		return "", fmt.Errorf("create hash: %w", err)
	}
	return digest, nil
}

// Verify recomputes the digest and compares in constant time.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("hash queue: %w", err)
	}
	defer h.sem.Release(1)

	match, err := argon2id.ComparePasswordAndHash(plaintext, digest)
	if err != nil {
		return false, fmt.Errorf("compare hash: %w", err)
	}
	return match, nil
}

// dummyDigest is a valid argon2id digest of an unknowable value, used to keep
// login timing uniform when no account matches the submitted email.
const dummyDigest = "$argon2id$v=19$m=65536,t=3,p=2$bm90LWEtcmVhbC1zYWx0$WVd5i86FBkxzeHmwd5cJmcCyDJexpthvVVmhEhd4aKY"

// DummyVerify burns one password comparison against a fixed digest. The
// result is always a mismatch.
func (h *Hasher) DummyVerify(ctx context.Context) {
	_, _ = h.Verify(ctx, "timing-equalizer", dummyDigest)
}
