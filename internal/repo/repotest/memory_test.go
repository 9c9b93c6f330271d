package repotest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPaginatesLikePostgres(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := repo.Create(ctx, fmt.Sprintf("User %d", i), fmt.Sprintf("u%d@x.com", i), "user", "hash")
		require.NoError(t, err)
	}

	// Newest first, limit and offset applied after ordering.
	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].ID)
	assert.Equal(t, int64(4), page[1].ID)

	page, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)
	assert.Equal(t, int64(2), page[1].ID)

	// Out-of-range limits clamp to the default page size.
	page, err = repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	page, err = repo.List(ctx, 200, -1)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	// Offset past the end yields an empty page.
	page, err = repo.List(ctx, 20, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	// Deactivated users never show up.
	require.NoError(t, repo.Deactivate(ctx, 5))
	page, err = repo.List(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, int64(4), page[0].ID)
}
