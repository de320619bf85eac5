package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is the default time-to-live for cached tool results.
const DefaultCacheTTL = 300 * time.Second

// WithCache returns a decorator that memoizes successful results per
// canonical argument key with the given TTL (DefaultCacheTTL when d <= 0).
// Intended for idempotent, expensive tools.
//
// The key is order-independent: {"a":1,"b":2} and {"b":2,"a":1} hit the
// same entry. A hit bypasses the wrapped invoker entirely. Errors are never
// cached, and expiry is checked lazily at lookup time; there is no sweeper
// goroutine. Concurrent misses for the same key are coalesced into a single
// underlying call; a waiter whose context is cancelled while the shared
// call is in flight gets ErrCancelled without disturbing the call.
func WithCache(d time.Duration) Decorator {
	if d <= 0 {
		d = DefaultCacheTTL
	}
	return func(next Invoker) Invoker {
		return &cachedInvoker{
			invokerBase: invokerBase{next: next},
			ttl:         d,
			entries:     make(map[string]cacheEntry),
			now:         time.Now,
		}
	}
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

type cachedInvoker struct {
	invokerBase
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func (c *cachedInvoker) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *cachedInvoker) store(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *cachedInvoker) Execute(ctx context.Context, rawArgs string) (string, error) {
	key := canonicalKey(rawArgs)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	// The coalesced call runs under the initiating caller's context; its
	// cancellation fails the shared flight, which is then not cached.
	ch := c.flight.DoChan(key, func() (any, error) {
		v, err := c.next.Execute(ctx, rawArgs)
		if err != nil {
			return "", err
		}
		c.store(key, v)
		return v, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

func (c *cachedInvoker) ExecuteSync(rawArgs string) (string, error) {
	key := canonicalKey(rawArgs)
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err := c.next.ExecuteSync(rawArgs)
	if err != nil {
		return "", err
	}
	c.store(key, v)
	return v, nil
}

// canonicalKey derives an order-independent cache key from raw argument
// text: repair, parse, and re-serialize (object keys sort on marshal). Text
// that still does not parse keys on its raw form verbatim.
func canonicalKey(raw string) string {
	v, err := parseStrict(Repair(raw))
	if err != nil {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return string(b)
}
