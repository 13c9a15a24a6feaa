package cache

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	payloadKey   = "dataset.payload"
	fetchedAtKey = "dataset.fetched_at"

	// DefaultTTL is the fixed window after which a cached dataset payload is
	// treated as stale.
	DefaultTTL = time.Hour
)

// DatasetCache persists the raw herb dataset payload together with its
// capture timestamp. The payload and timestamp are written together; reads
// never consult the network.
type DatasetCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// DatasetOption customises the DatasetCache.
type DatasetOption func(*DatasetCache)

// WithTTL overrides the staleness window.
func WithTTL(ttl time.Duration) DatasetOption {
	return func(c *DatasetCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) DatasetOption {
	return func(c *DatasetCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewDatasetCache constructs a dataset cache over the shared key-value store.
func NewDatasetCache(store Store, opts ...DatasetOption) (*DatasetCache, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}

	c := &DatasetCache{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Put stores the payload and the current capture timestamp, replacing any
// prior entry. Both values are written in one transaction.
func (c *DatasetCache) Put(ctx context.Context, payload []byte) error {
	ts := float64(c.now().UnixNano()) / float64(time.Second)
	return c.store.SetAll(ctx, map[string][]byte{
		payloadKey:   payload,
		fetchedAtKey: []byte(strconv.FormatFloat(ts, 'f', -1, 64)),
	})
}

// Get returns the stored payload, reporting absence via the second return.
// Expiry is deliberately not checked here; see IsExpired.
func (c *DatasetCache) Get(ctx context.Context) ([]byte, bool, error) {
	return c.store.Get(ctx, payloadKey)
}

// IsExpired reports whether the cached payload has outlived the TTL. A
// missing capture timestamp counts as expired.
func (c *DatasetCache) IsExpired(ctx context.Context) (bool, error) {
	raw, ok, err := c.store.Get(ctx, fetchedAtKey)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}

	seconds, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return true, nil
	}

	fetchedAt := time.Unix(0, int64(seconds*float64(time.Second)))
	return c.now().Sub(fetchedAt) >= c.ttl, nil
}

// Clear removes the payload and capture timestamp unconditionally.
func (c *DatasetCache) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, payloadKey, fetchedAtKey)
}
