package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQuotaRepository(t *testing.T) {
	repo := NewMemoryQuotaRepository()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(456)
		allowed, err := repo.CheckRateLimit(ctx, userID, 2, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.False(t, allowed)

		// Other users have their own window
		allowed, _ = repo.CheckRateLimit(ctx, 457, 2, time.Second)
		assert.True(t, allowed)

		now = now.Add(time.Second)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
	})

	t.Run("Prune", func(t *testing.T) {
		now = now.Add(time.Hour)
		repo.Prune()
		assert.Empty(t, repo.windows)
	})
}
