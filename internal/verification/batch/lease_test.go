package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLeaser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	leaser := NewMemoryLeaser()
	leaser.now = func() time.Time { return now }

	release, ok, err := leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held lease is exclusive")

	_, ok, err = leaser.Acquire(ctx, 2, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "leases are per worker")

	require.NoError(t, release(ctx))
	_, ok, err = leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "released lease can be taken again")
}

func TestMemoryLeaserExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	leaser := NewMemoryLeaser()
	leaser.now = func() time.Time { return now }

	staleRelease, ok, err := leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, err = leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired lease can be re-acquired")

	require.NoError(t, staleRelease(ctx))
	_, ok, err = leaser.Acquire(ctx, 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "stale release must not drop the new holder")
}
