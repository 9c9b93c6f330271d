package redisrepo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowFailsOpenWhenRedisUnreachable(t *testing.T) {
	// Nothing listens on this port; every pipeline Exec errors out. An
	// outage must not lock anyone out of login.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client)

	ok, err := limiter.Allow(context.Background(), "login:a@x.com:10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.NotNil(t, client)
	_ = client.Close()

	_, err = NewClient("://not-a-url")
	assert.Error(t, err)
}
