package toolcall

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingTool(t *testing.T, calls *atomic.Int64) *Tool {
	t.Helper()
	tool, err := New("lookup", "Expensive idempotent lookup",
		func(_ context.Context, key string) (string, error) {
			calls.Add(1)
			return "value:" + key, nil
		},
		WithParam("key", ""),
	)
	require.NoError(t, err)
	return tool
}

func TestCache_HitBypassesTool(t *testing.T) {
	var calls atomic.Int64
	cached := WithCache(time.Minute)(newCountingTool(t, &calls))

	ctx := context.Background()
	res, err := cached.Execute(ctx, `{"key": "a"}`)
	require.NoError(t, err)
	assert.Equal(t, "value:a", res)

	res, err = cached.Execute(ctx, `{"key": "a"}`)
	require.NoError(t, err)
	assert.Equal(t, "value:a", res)
	assert.Equal(t, int64(1), calls.Load())

	// A different key misses.
	_, err = cached.Execute(ctx, `{"key": "b"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_KeyIsOrderIndependent(t *testing.T) {
	var calls atomic.Int64
	tool, err := New("sum", "d",
		func(_ context.Context, a, b int) (int, error) {
			calls.Add(1)
			return a + b, nil
		},
		WithParam("a", ""), WithParam("b", ""),
	)
	require.NoError(t, err)
	cached := WithCache(time.Minute)(tool)

	ctx := context.Background()
	first, err := cached.Execute(ctx, `{"a": 1, "b": 2}`)
	require.NoError(t, err)
	second, err := cached.Execute(ctx, `{"b": 2, "a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())

	// Repaired near-JSON canonicalizes to the same key as well.
	_, err = cached.Execute(ctx, `{b: 2, a: 1}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_TTLExpiry(t *testing.T) {
	var calls atomic.Int64
	cached := WithCache(time.Minute)(newCountingTool(t, &calls)).(*cachedInvoker)

	now := time.Now()
	var mu sync.Mutex
	cached.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	ctx := context.Background()
	_, err := cached.Execute(ctx, `{"key": "a"}`)
	require.NoError(t, err)
	_, err = cached.Execute(ctx, `{"key": "a"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	_, err = cached.Execute(ctx, `{"key": "a"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "expired entry must re-invoke the wrapped tool")
}

func TestCache_ErrorsNeverCached(t *testing.T) {
	var calls atomic.Int64
	boom := errors.New("flaky")
	tool, err := New("flaky", "d",
		func(_ context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", boom
			}
			return "ok", nil
		},
	)
	require.NoError(t, err)
	cached := WithCache(time.Minute)(tool)

	ctx := context.Background()
	_, err = cached.Execute(ctx, `{}`)
	require.Error(t, err)

	res, err := cached.Execute(ctx, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_ConcurrentMissesCoalesce(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	tool, err := New("slow", "d",
		func(_ context.Context, key string) (string, error) {
			calls.Add(1)
			<-release
			return "v:" + key, nil
		},
		WithParam("key", ""),
	)
	require.NoError(t, err)
	cached := WithCache(time.Minute)(tool)

	const waiters = 5
	var wg sync.WaitGroup
	results := make([]string, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := cached.Execute(context.Background(), `{"key": "a"}`)
			if err == nil {
				results[i] = res
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses for one key must coalesce")
	for _, res := range results {
		assert.Equal(t, "v:a", res)
	}
}

func TestCache_WaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	tool, err := New("slow", "d",
		func(_ context.Context) (string, error) {
			<-release
			return "done", nil
		},
	)
	require.NoError(t, err)
	cached := WithCache(time.Minute)(tool)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cached.Execute(ctx, `{}`)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	err = <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	close(release)
}

func TestCache_ExecuteSync(t *testing.T) {
	var calls atomic.Int64
	tool, err := New("sync", "d", func() string {
		calls.Add(1)
		return "r"
	})
	require.NoError(t, err)
	cached := WithCache(time.Minute)(tool)

	res, err := cached.ExecuteSync(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "r", res)
	_, err = cached.ExecuteSync(`{}`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, canonicalKey(`{"a":1,"b":2}`), canonicalKey(`{"b":2,"a":1}`))
	assert.Equal(t, canonicalKey(`{"a":1}`), canonicalKey(`{a: 1}`))
	// Unparsable text keys on itself.
	assert.Equal(t, "garbage [", canonicalKey("garbage ["))
}
