package herbs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/osanyin/herbal/internal/cache"
	"github.com/osanyin/herbal/internal/models"
	"github.com/osanyin/herbal/pkg/logger"
	"github.com/osanyin/herbal/pkg/metrics"
)

// EventSink receives dataset lifecycle events. A nil sink disables publishing.
type EventSink interface {
	Publish(event string, data any)
}

// Repository owns the in-memory herb collection together with the loading
// and error flags observed by the API layer. Records are replaced wholesale
// on every successful fetch; a failed fetch keeps the previous collection.
type Repository struct {
	fetcher *Fetcher
	cache   *cache.DatasetCache
	events  EventSink
	log     *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	records []models.Herb
	loading bool
	errMsg  string
}

// RepositoryOption customises the Repository.
type RepositoryOption func(*Repository)

// WithEventSink wires a sink for dataset.refreshed events.
func WithEventSink(sink EventSink) RepositoryOption {
	return func(r *Repository) {
		r.events = sink
	}
}

// NewRepository constructs a repository over the fetcher and dataset cache.
func NewRepository(fetcher *Fetcher, datasetCache *cache.DatasetCache, opts ...RepositoryOption) (*Repository, error) {
	if fetcher == nil {
		return nil, errors.New("herbs: fetcher is required")
	}
	if datasetCache == nil {
		return nil, errors.New("herbs: dataset cache is required")
	}

	r := &Repository{
		fetcher: fetcher,
		cache:   datasetCache,
		log:     logger.WithModule("repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Loading reports whether a fetch is currently in flight.
func (r *Repository) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// ErrMessage returns the user-visible message of the last failed fetch, or
// the empty string.
func (r *Repository) ErrMessage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errMsg
}

// Records returns a snapshot of the current collection in payload order.
func (r *Repository) Records() []models.Herb {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Herb, len(r.records))
	copy(out, r.records)
	return out
}

// Get looks up a single record by identifier.
func (r *Repository) Get(id string) (models.Herb, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.records {
		if record.ID == id {
			return record, true
		}
	}
	return models.Herb{}, false
}

// Fetch loads the dataset, preferring a fresh cache over the network.
// Concurrent calls coalesce onto a single in-flight fetch and share its
// result, so result delivery never interleaves for one repository instance.
func (r *Repository) Fetch(ctx context.Context) error {
	_, err, _ := r.group.Do("fetch", func() (any, error) {
		return nil, r.doFetch(ctx)
	})
	return err
}

// Refresh clears the cache, rewinds the fallback ladder, drops the current
// collection and error state, then fetches from the first candidate URL.
func (r *Repository) Refresh(ctx context.Context) error {
	if err := r.cache.Clear(ctx); err != nil {
		r.log.Warn("cache clear failed", zap.Error(err))
	}
	r.fetcher.ResetFallback()

	r.mu.Lock()
	r.records = nil
	r.errMsg = ""
	r.mu.Unlock()

	return r.Fetch(ctx)
}

func (r *Repository) doFetch(ctx context.Context) error {
	r.mu.Lock()
	r.loading = true
	r.errMsg = ""
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	payload, fromCache, err := r.loadPayload(ctx)
	if err != nil {
		r.fail(err)
		return err
	}

	records, err := Decode(payload)
	if err != nil {
		r.fail(err)
		return err
	}

	r.mu.Lock()
	r.records = records
	r.errMsg = ""
	r.mu.Unlock()

	metrics.DatasetRecords.Set(float64(len(records)))

	if !fromCache {
		if err := r.cache.Put(ctx, payload); err != nil {
			// Stale cache is recoverable; the collection is already swapped in.
			r.log.Warn("cache write failed", zap.Error(err))
		}
	}

	if r.events != nil {
		r.events.Publish("dataset.refreshed", map[string]any{"records": len(records)})
	}

	r.log.Info("dataset loaded",
		zap.Int("records", len(records)),
		zap.Bool("from_cache", fromCache),
	)
	return nil
}

// loadPayload consults the cache first and falls through to the network when
// the cache is missing or stale.
func (r *Repository) loadPayload(ctx context.Context) ([]byte, bool, error) {
	payload, err := r.cachedPayload(ctx)
	switch {
	case err == nil:
		metrics.FetchAttempts.WithLabelValues("cache", "cache_hit").Inc()
		return payload, true, nil
	case errors.Is(err, ErrCacheMiss):
		// fall through to the network
	default:
		r.log.Warn("cache read failed", zap.Error(err))
	}

	payload, err = r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	return payload, false, nil
}

func (r *Repository) cachedPayload(ctx context.Context) ([]byte, error) {
	expired, err := r.cache.IsExpired(ctx)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrCacheMiss
	}

	payload, ok, err := r.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return payload, nil
}

func (r *Repository) fail(err error) {
	r.mu.Lock()
	r.errMsg = err.Error()
	r.mu.Unlock()

	r.log.Error("fetch failed", zap.Error(err))
}

// FilterOptions compose with logical AND; zero values are ignored.
type FilterOptions struct {
	Category  string
	Continent string
	Search    string
}

// Filter returns the records matching every supplied criterion. Category is
// a case-insensitive exact match, continent a set-membership test, and
// search a case-insensitive substring match over the display name,
// scientific name, description and use tags.
func (r *Repository) Filter(opts FilterOptions) []models.Herb {
	records := r.Records()

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	out := make([]models.Herb, 0, len(records))

	for _, record := range records {
		if opts.Category != "" && !strings.EqualFold(record.Category, opts.Category) {
			continue
		}
		if opts.Continent != "" && !record.HasContinent(opts.Continent) {
			continue
		}
		if search != "" && !matchesSearch(&record, search) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// ByCategory returns records whose category equals the argument, ignoring case.
func (r *Repository) ByCategory(category string) []models.Herb {
	return r.Filter(FilterOptions{Category: category})
}

// ByContinent returns records present on the given continent code.
func (r *Repository) ByContinent(continent string) []models.Herb {
	return r.Filter(FilterOptions{Continent: continent})
}

// Categories returns the distinct category labels present in the collection,
// sorted lexicographically.
func (r *Repository) Categories() []string {
	records := r.Records()

	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, record := range records {
		if record.Category == "" {
			continue
		}
		if _, ok := seen[record.Category]; ok {
			continue
		}
		seen[record.Category] = struct{}{}
		out = append(out, record.Category)
	}

	sort.Strings(out)
	return out
}

func matchesSearch(record *models.Herb, search string) bool {
	if strings.Contains(strings.ToLower(record.EnglishName), search) {
		return true
	}
	if strings.Contains(strings.ToLower(record.ScientificName), search) {
		return true
	}
	if strings.Contains(strings.ToLower(record.Description), search) {
		return true
	}
	for _, use := range record.Uses {
		if strings.Contains(strings.ToLower(use), search) {
			return true
		}
	}
	return false
}
