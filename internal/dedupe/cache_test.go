package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trkd-health/feed-backend/internal/dedupe"
)

func TestObserveDuplicate(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.Observe("job-alpha"))
	require.True(t, cache.Observe("job-alpha"))
	require.True(t, cache.Observe("job-alpha"))
}

func TestObserveTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	require.False(t, cache.Observe("job-beta"))
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.Observe("job-beta"))
}

func TestObserveCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	require.False(t, cache.Observe("first"))
	require.False(t, cache.Observe("second"))
	require.True(t, cache.Observe("second"))

	// "first" was evicted to make room for "second"
	require.False(t, cache.Observe("first"))
}

func TestObserveDuplicatesDoNotDisplaceOthers(t *testing.T) {
	cache := dedupe.NewCache(2, time.Minute)
	require.False(t, cache.Observe("job-a"))
	require.False(t, cache.Observe("job-b"))

	// a redelivery storm of job-a must not age job-b toward eviction
	for i := 0; i < 5; i++ {
		require.True(t, cache.Observe("job-a"))
	}

	require.False(t, cache.Observe("job-c"))
	require.True(t, cache.Observe("job-b"))
	require.False(t, cache.Observe("job-a"))
}
