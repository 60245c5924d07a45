package collector

import (
	"context"
	"testing"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormspotter-go/stormspotter/internal/recordstore"
)

func TestCountingStoreAppendIncrementsCount(t *testing.T) {
	store := recordstore.New(t.TempDir())
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	counts := cmap.New[int64]()
	cstore := countingStore{store, counts}

	require.NoError(t, cstore.Append("tenant", map[string]any{"id": "t1"}))
	require.NoError(t, cstore.Append("tenant", map[string]any{"id": "t2"}))
	require.NoError(t, cstore.Append("subscription", map[string]any{"id": "s1"}))

	tenantCount, ok := counts.Get("tenant")
	require.True(t, ok)
	assert.Equal(t, int64(2), tenantCount)

	subCount, ok := counts.Get("subscription")
	require.True(t, ok)
	assert.Equal(t, int64(1), subCount)
}

func TestRunTimestampUsesPinnedTimeFromContext(t *testing.T) {
	pinned := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	ctx := WithRunTimestamp(context.Background(), pinned)
	assert.Equal(t, "20240315-093000", runTimestamp(ctx))
}

func TestRunTimestampFallsBackToNowWithoutPin(t *testing.T) {
	assert.NotEmpty(t, runTimestamp(context.Background()))
}
