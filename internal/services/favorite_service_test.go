package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osanyin/herbal/internal/database/testutil"
	"github.com/osanyin/herbal/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Publish(event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestFavoriteService(t *testing.T, opts ...FavoriteOption) *FavoriteService {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewFavoriteService(db, opts...)
	require.NoError(t, err)
	return service
}

func gingerHerb() models.Herb {
	return models.Herb{
		ID:             "ginger-001",
		EnglishName:    "Ginger",
		ScientificName: "Zingiber officinale",
		Category:       "Herb",
	}
}

func TestNewFavoriteServiceRequiresDB(t *testing.T) {
	_, err := NewFavoriteService(nil)
	require.Error(t, err)
}

func TestAddAndIsFavorite(t *testing.T) {
	service := newTestFavoriteService(t)
	ctx := context.Background()

	favorite, err := service.Add(ctx, gingerHerb(), 4)
	require.NoError(t, err)
	require.Equal(t, "ginger-001", favorite.HerbID)
	require.Equal(t, "Ginger", favorite.EnglishName)
	require.Equal(t, 4, favorite.StarRating)

	ok, err := service.IsFavorite(ctx, "ginger-001")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = service.IsFavorite(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddOverwritesExistingAnnotation(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	service := newTestFavoriteService(t, WithNow(func() time.Time { return current }))
	ctx := context.Background()

	_, err := service.Add(ctx, gingerHerb(), 2)
	require.NoError(t, err)

	current = base.Add(time.Hour)
	updated := gingerHerb()
	updated.Category = "Rhizome"
	_, err = service.Add(ctx, updated, 5)
	require.NoError(t, err)

	favorites, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, "Rhizome", favorites[0].Category)
	require.Equal(t, 5, favorites[0].StarRating)
	require.WithinDuration(t, base.Add(time.Hour), favorites[0].DateAdded, time.Second)
}

func TestAddRejectsInvalidRating(t *testing.T) {
	service := newTestFavoriteService(t)

	_, err := service.Add(context.Background(), gingerHerb(), 6)
	require.ErrorIs(t, err, ErrInvalidRating)

	_, err = service.Add(context.Background(), gingerHerb(), -1)
	require.ErrorIs(t, err, ErrInvalidRating)
}

func TestAddRequiresHerbID(t *testing.T) {
	service := newTestFavoriteService(t)

	herb := gingerHerb()
	herb.ID = "   "
	_, err := service.Add(context.Background(), herb, 0)
	require.Error(t, err)
}

func TestRemoveIsIdempotent(t *testing.T) {
	service := newTestFavoriteService(t)
	ctx := context.Background()

	_, err := service.Add(ctx, gingerHerb(), 3)
	require.NoError(t, err)

	require.NoError(t, service.Remove(ctx, "ginger-001"))
	require.NoError(t, service.Remove(ctx, "ginger-001"))

	ok, err := service.IsFavorite(ctx, "ginger-001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetRatingNoOpWhenAbsent(t *testing.T) {
	service := newTestFavoriteService(t)
	ctx := context.Background()

	require.NoError(t, service.SetRating(ctx, "missing", 3))

	rating, err := service.GetRating(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, 0, rating)

	ok, err := service.IsFavorite(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetRatingUpdatesExisting(t *testing.T) {
	service := newTestFavoriteService(t)
	ctx := context.Background()

	_, err := service.Add(ctx, gingerHerb(), 1)
	require.NoError(t, err)

	require.NoError(t, service.SetRating(ctx, "ginger-001", 5))

	rating, err := service.GetRating(ctx, "ginger-001")
	require.NoError(t, err)
	require.Equal(t, 5, rating)
}

func TestSetRatingRejectsOutOfRange(t *testing.T) {
	service := newTestFavoriteService(t)

	require.ErrorIs(t, service.SetRating(context.Background(), "ginger-001", 9), ErrInvalidRating)
}

func TestGetRatingDefaultsToZero(t *testing.T) {
	service := newTestFavoriteService(t)

	rating, err := service.GetRating(context.Background(), "never-added")
	require.NoError(t, err)
	require.Equal(t, 0, rating)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	service := newTestFavoriteService(t, WithNow(func() time.Time { return current }))
	ctx := context.Background()

	_, err := service.Add(ctx, gingerHerb(), 2)
	require.NoError(t, err)

	current = base.Add(time.Minute)
	hibiscus := models.Herb{ID: "hibiscus-002", EnglishName: "Hibiscus", ScientificName: "Hibiscus sabdariffa", Category: "Flower"}
	_, err = service.Add(ctx, hibiscus, 4)
	require.NoError(t, err)

	favorites, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	require.Equal(t, "hibiscus-002", favorites[0].HerbID)
	require.Equal(t, "ginger-001", favorites[1].HerbID)
}

func TestEventsPublishedOnMutation(t *testing.T) {
	sink := &recordingSink{}
	service := newTestFavoriteService(t, WithEventSink(sink))
	ctx := context.Background()

	_, err := service.Add(ctx, gingerHerb(), 3)
	require.NoError(t, err)
	require.NoError(t, service.SetRating(ctx, "ginger-001", 4))
	require.NoError(t, service.Remove(ctx, "ginger-001"))

	require.Equal(t, 3, sink.count())
}

func TestGetReturnsAnnotation(t *testing.T) {
	service := newTestFavoriteService(t)
	ctx := context.Background()

	_, found, err := service.Get(ctx, "ginger-001")
	require.NoError(t, err)
	require.False(t, found)

	_, err = service.Add(ctx, gingerHerb(), 2)
	require.NoError(t, err)

	favorite, found, err := service.Get(ctx, "ginger-001")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Zingiber officinale", favorite.ScientificName)
}
