package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/collision-dashboard/internal/domain"
	"github.com/couchcryptid/collision-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock loader for cache tests ---

type countingLoader struct {
	mu          sync.Mutex
	fingerprint string
	fpErr       error
	loadErr     error
	gate        chan struct{} // when set, Load blocks until closed
	calls       atomic.Int32
}

func (m *countingLoader) Load(_ context.Context, rowLimit int) (*domain.Dataset, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	records := make([]domain.CollisionRecord, rowLimit)
	return domain.NewDataset(records, nil, rowLimit, rowLimit, domain.DropCounts{}, m.fingerprint), nil
}

func (m *countingLoader) Fingerprint() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fingerprint, m.fpErr
}

func (m *countingLoader) setFingerprint(fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprint = fp
}

func newTestCache(inner Loader) *Cache {
	return NewCache(inner, discardLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestCache_HitAfterMiss(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1"}
	cache := newTestCache(inner)

	ds1, err := cache.Load(context.Background(), 10)
	require.NoError(t, err)
	ds2, err := cache.Load(context.Background(), 10)
	require.NoError(t, err)

	assert.Same(t, ds1, ds2)
	assert.Equal(t, int32(1), inner.calls.Load(), "should only call inner once")
}

func TestCache_KeyedByRowLimit(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1"}
	cache := newTestCache(inner)

	small, err := cache.Load(context.Background(), 5)
	require.NoError(t, err)
	large, err := cache.Load(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 5, small.Len())
	assert.Equal(t, 50, large.Len())
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Len(t, cache.Entries(), 2)
}

func TestCache_FingerprintChangeReloadsAndEvicts(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1"}
	cache := newTestCache(inner)

	_, err := cache.Load(context.Background(), 5)
	require.NoError(t, err)
	_, err = cache.Load(context.Background(), 50)
	require.NoError(t, err)

	inner.setFingerprint("v2")
	ds, err := cache.Load(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, "v2", ds.Fingerprint)
	assert.Equal(t, int32(3), inner.calls.Load())

	entries := cache.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{RowLimit: 5, Fingerprint: "v2", Records: 5, LoadedAt: ds.LoadedAt}, entries[0])
}

func TestCache_Invalidate(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1"}
	cache := newTestCache(inner)

	_, err := cache.Load(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Invalidate())
	assert.Empty(t, cache.Entries())

	_, err = cache.Load(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1", loadErr: domain.ErrSchemaMismatch}
	cache := newTestCache(inner)

	_, err := cache.Load(context.Background(), 5)
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
	assert.Empty(t, cache.Entries())

	inner.mu.Lock()
	inner.loadErr = nil
	inner.mu.Unlock()

	ds, err := cache.Load(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCache_FingerprintError(t *testing.T) {
	inner := &countingLoader{fpErr: errors.Join(domain.ErrSourceUnavailable, errors.New("stat: no such file"))}
	cache := newTestCache(inner)

	_, err := cache.Load(context.Background(), 5)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Zero(t, inner.calls.Load())
}

func TestCache_InvalidRowLimit(t *testing.T) {
	cache := newTestCache(&countingLoader{fingerprint: "v1"})
	_, err := cache.Load(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1", gate: make(chan struct{})}
	cache := newTestCache(inner)

	const callers = 8
	results := make([]*domain.Dataset, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := cache.Load(context.Background(), 10)
			assert.NoError(t, err)
			results[i] = ds
		}()
	}

	// Let every caller reach the in-flight load before releasing it.
	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}
}

func TestCache_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := NewCache(newTestLoader(sampleCSV), discardLogger(), observability.NewMetricsForTesting())
	ds, err := cache.Load(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())
}

func TestCache_SlowStaleLoadDoesNotEvictCurrent(t *testing.T) {
	inner := &countingLoader{fingerprint: "v1", gate: make(chan struct{})}
	cache := newTestCache(inner)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := cache.Load(context.Background(), 10)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)

	inner.setFingerprint("v2")
	go func() {
		defer wg.Done()
		_, err := cache.Load(context.Background(), 20)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return inner.calls.Load() == 2 }, time.Second, time.Millisecond)

	close(inner.gate)
	wg.Wait()

	entries := cache.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].RowLimit)
	assert.Equal(t, "v2", entries[0].Fingerprint)
}
