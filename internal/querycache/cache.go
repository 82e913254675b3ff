// Package querycache is a process-wide in-memory cache of GET-like request
// results, keyed by URL plus parameters, with time-to-live expiry and
// in-flight request de-duplication.
//
// Two maps are kept under one mutex:
//
//   - entries: key -> Entry{Data, Timestamp, TTL}; an entry is valid while
//     now - Timestamp <= TTL and is evicted lazily on the first read after that.
//   - pending: key -> *Call; a handle to the network call currently running for
//     that key. Callers that find a pending handle wait on it instead of
//     issuing their own request.
//
// The cache is never persisted; its lifetime is the process.
package querycache

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// Entry wraps one cached response.
type Entry struct {
	Data      []byte
	Timestamp time.Time
	TTL       time.Duration
}

// Call is an in-flight operation that several callers may wait on.
type Call struct {
	done chan struct{}
	val  []byte
	err  error
}

// NewCall returns an unfinished Call.
func NewCall() *Call { return &Call{done: make(chan struct{})} }

// Finish records the outcome and releases all waiters. It must be called
// exactly once.
func (c *Call) Finish(val []byte, err error) {
	c.val, c.err = val, err
	close(c.done)
}

// Wait blocks until the call finishes or ctx is done. Cancelling ctx only
// stops this caller's wait; the call itself keeps running.
func (c *Call) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats is a snapshot of the cache contents.
type Stats struct {
	Entries int      `json:"entries"`
	Pending int      `json:"pending"`
	Keys    []string `json:"keys"`
}

// Cache holds cached entries and pending calls. The zero value is not usable;
// construct with New.
type Cache struct {
	// Now is the clock used for timestamps and expiry. Tests replace it.
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	pending map[string]*Call
}

// New returns an empty Cache using the wall clock.
func New() *Cache {
	return &Cache{
		Now:     time.Now,
		entries: make(map[string]Entry),
		pending: make(map[string]*Call),
	}
}

// Key renders url and params as a canonical cache key: parameters sorted by
// name, rendered as name=value, joined by '&' and appended after '?'.
func Key(url string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(url)
	b.WriteByte('?')
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Get returns the cached payload for key if present and still valid. An
// expired entry is evicted.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.Now().Sub(e.Timestamp) > e.TTL {
		delete(c.entries, key)
		entriesGauge.Set(float64(len(c.entries)))
		return nil, false
	}
	return e.Data, true
}

// Set inserts or overwrites the entry for key, stamped with the current time.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: data, Timestamp: c.Now(), TTL: ttl}
	entriesGauge.Set(float64(len(c.entries)))
}

// Pending returns the in-flight call for key, if any.
func (c *Cache) Pending(key string) (*Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.pending[key]
	return call, ok
}

// MarkPending registers call as the in-flight operation for key.
func (c *Cache) MarkPending(key string, call *Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = call
}

// ClearPending removes the in-flight marker for key.
func (c *Cache) ClearPending(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

// clearPendingIf removes the marker only if it still refers to call, so a
// forced refresh that replaced the marker is not dropped by an older call.
func (c *Cache) clearPendingIf(key string, call *Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == call {
		delete(c.pending, key)
	}
}

// InvalidateAll clears both cached entries and pending markers.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.pending = make(map[string]*Call)
	entriesGauge.Set(0)
}

// InvalidateMatching removes every cached entry whose key matches pattern
// and returns how many were removed. Pending markers are left alone.
func (c *Cache) InvalidateMatching(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if re.MatchString(k) {
			delete(c.entries, k)
			n++
		}
	}
	entriesGauge.Set(float64(len(c.entries)))
	return n, nil
}

// Stats returns the number of entries and pending calls and the sorted keys.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Stats{Entries: len(c.entries), Pending: len(c.pending), Keys: keys}
}
