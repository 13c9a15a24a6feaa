package herbs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osanyin/herbal/internal/cache"
	"github.com/osanyin/herbal/internal/database"
)

func newTestDatasetCache(t *testing.T, opts ...cache.DatasetOption) *cache.DatasetCache {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	dc, err := cache.NewDatasetCache(cache.NewDatabaseStore(db), opts...)
	require.NoError(t, err)
	return dc
}

func newTestRepository(t *testing.T, urls []string) *Repository {
	t.Helper()

	f, err := NewFetcher(urls)
	require.NoError(t, err)

	repo, err := NewRepository(f, newTestDatasetCache(t))
	require.NoError(t, err)
	return repo
}

func TestFetchEndToEnd(t *testing.T) {
	srv := jsonServer(t, samplePayload, nil)
	repo := newTestRepository(t, []string{srv.URL})

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))

	require.Len(t, repo.Records(), 2)
	require.Empty(t, repo.ErrMessage())
	require.False(t, repo.Loading())

	// The accepted payload was written back to the cache and is fresh.
	expired, err := repo.cache.IsExpired(ctx)
	require.NoError(t, err)
	require.False(t, expired)

	payload, ok, err := repo.cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(samplePayload), payload)
}

func TestFetchUsesFreshCache(t *testing.T) {
	var hits atomic.Int64
	srv := jsonServer(t, samplePayload, &hits)
	repo := newTestRepository(t, []string{srv.URL})

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))
	require.NoError(t, repo.Fetch(ctx))

	require.EqualValues(t, 1, hits.Load())
	require.Len(t, repo.Records(), 2)
}

func TestFetchFailureKeepsPriorRecords(t *testing.T) {
	srv := jsonServer(t, samplePayload, nil)
	bad := htmlServer(t)

	f, err := NewFetcher([]string{srv.URL})
	require.NoError(t, err)
	repo, err := NewRepository(f, newTestDatasetCache(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))
	require.Len(t, repo.Records(), 2)

	// Point the repository at failing content with an empty cache.
	require.NoError(t, repo.cache.Clear(ctx))
	repo.fetcher.urls = []string{bad.URL}
	repo.fetcher.ResetFallback()

	require.Error(t, repo.Fetch(ctx))
	require.NotEmpty(t, repo.ErrMessage())
	require.Len(t, repo.Records(), 2)
	require.False(t, repo.Loading())
}

func TestFetchDecodeFailureKeepsPriorRecords(t *testing.T) {
	good := jsonServer(t, samplePayload, nil)
	// Leading brace passes the shape check; schema is still invalid.
	invalid := jsonServer(t, `{"herbs":[{"id":""}]}`, nil)

	f, err := NewFetcher([]string{good.URL})
	require.NoError(t, err)
	repo, err := NewRepository(f, newTestDatasetCache(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))

	require.NoError(t, repo.cache.Clear(ctx))
	repo.fetcher.urls = []string{invalid.URL}
	repo.fetcher.ResetFallback()

	err = repo.Fetch(ctx)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Len(t, repo.Records(), 2)

	// The rejected payload must not have been written back.
	_, ok, err := repo.cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshResetsFallbackAndCache(t *testing.T) {
	bad := htmlServer(t)
	good := jsonServer(t, samplePayload, nil)

	f, err := NewFetcher([]string{bad.URL, good.URL})
	require.NoError(t, err)
	repo, err := NewRepository(f, newTestDatasetCache(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))
	require.Equal(t, 1, repo.fetcher.FallbackIndex())

	require.NoError(t, repo.Refresh(ctx))

	// Refresh rewound the ladder, re-failed the first URL and landed on the
	// second again with a freshly written cache.
	require.Equal(t, 1, repo.fetcher.FallbackIndex())
	require.Len(t, repo.Records(), 2)

	expired, err := repo.cache.IsExpired(ctx)
	require.NoError(t, err)
	require.False(t, expired)
}

func TestConcurrentFetchesCoalesce(t *testing.T) {
	var hits atomic.Int64
	srv := jsonServer(t, samplePayload, &hits)
	repo := newTestRepository(t, []string{srv.URL})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Fetch(context.Background())
		}()
	}
	wg.Wait()

	// Coalesced callers share one in-flight fetch; later calls may hit the
	// fresh cache but never trigger a second network round for this window.
	require.EqualValues(t, 1, hits.Load())
	require.Len(t, repo.Records(), 2)
}

func TestFilterSemantics(t *testing.T) {
	srv := jsonServer(t, samplePayload, nil)
	repo := newTestRepository(t, []string{srv.URL})
	require.NoError(t, repo.Fetch(context.Background()))

	herbsOnly := repo.Filter(FilterOptions{Category: "herb"})
	require.Len(t, herbsOnly, 1)
	require.Equal(t, "ginger-001", herbsOnly[0].ID)

	asia := repo.ByContinent("AS")
	require.Len(t, asia, 1)
	require.Equal(t, "ginger-001", asia[0].ID)

	// Case-insensitive substring over description.
	matched := repo.Filter(FilterOptions{Search: "ginger"})
	require.Len(t, matched, 1)

	// Search matches use tags too.
	pressure := repo.Filter(FilterOptions{Search: "blood pressure"})
	require.Len(t, pressure, 1)
	require.Equal(t, "hibiscus-002", pressure[0].ID)

	// AND-composition.
	none := repo.Filter(FilterOptions{Category: "Herb", Continent: "AS", Search: "hibiscus"})
	require.Empty(t, none)

	require.Equal(t, []string{"Flower", "Herb"}, repo.Categories())
}

func TestGetByID(t *testing.T) {
	srv := jsonServer(t, samplePayload, nil)
	repo := newTestRepository(t, []string{srv.URL})
	require.NoError(t, repo.Fetch(context.Background()))

	record, ok := repo.Get("hibiscus-002")
	require.True(t, ok)
	require.Equal(t, "Hibiscus", record.EnglishName)

	_, ok = repo.Get("missing")
	require.False(t, ok)
}

func TestCacheExpiryTriggersNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := jsonServer(t, samplePayload, &hits)

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dc := newTestDatasetCache(t, cache.WithClock(func() time.Time { return current }))

	f, err := NewFetcher([]string{srv.URL})
	require.NoError(t, err)
	repo, err := NewRepository(f, dc)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Fetch(ctx))
	require.EqualValues(t, 1, hits.Load())

	// Within the TTL the cache short-circuits the network.
	current = current.Add(30 * time.Minute)
	require.NoError(t, repo.Fetch(ctx))
	require.EqualValues(t, 1, hits.Load())

	// Past the TTL the repository refetches.
	current = current.Add(31 * time.Minute)
	require.NoError(t, repo.Fetch(ctx))
	require.EqualValues(t, 2, hits.Load())
}
