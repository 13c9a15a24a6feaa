package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/osanyin/herbal/internal/models"
	"github.com/osanyin/herbal/pkg/logger"
	"github.com/osanyin/herbal/pkg/metrics"
)

var (
	// ErrInvalidRating indicates a star rating outside the accepted 0..5 range.
	ErrInvalidRating = errors.New("favorite service: rating must be between 0 and 5")
)

// EventSink receives favorite change events. A nil sink disables publishing.
type EventSink interface {
	Publish(event string, data any)
}

// FavoriteService persists user favorites keyed by herb identifier. Writes
// are durable before the call returns; there are no deferred or batched
// mutations observable to callers.
type FavoriteService struct {
	db     *gorm.DB
	events EventSink
	now    func() time.Time
	log    *zap.Logger
}

// FavoriteOption customises the FavoriteService.
type FavoriteOption func(*FavoriteService)

// WithEventSink wires a sink for favorites.changed events.
func WithEventSink(sink EventSink) FavoriteOption {
	return func(s *FavoriteService) {
		s.events = sink
	}
}

// WithNow overrides the clock used for DateAdded stamps, primarily for tests.
func WithNow(now func() time.Time) FavoriteOption {
	return func(s *FavoriteService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFavoriteService constructs a favorite service once a database handle is supplied.
func NewFavoriteService(db *gorm.DB, opts ...FavoriteOption) (*FavoriteService, error) {
	if db == nil {
		return nil, errors.New("favorite service: db is required")
	}

	s := &FavoriteService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("favorites"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Add creates or overwrites the annotation for the given record, snapshotting
// its display fields at favoriting time.
func (s *FavoriteService) Add(ctx context.Context, record models.Herb, rating int) (*models.Favorite, error) {
	if s == nil {
		return nil, errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id := strings.TrimSpace(record.ID)
	if id == "" {
		return nil, errors.New("favorite service: herb id is required")
	}
	if rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}

	favorite := models.Favorite{
		HerbID:         id,
		EnglishName:    record.EnglishName,
		ScientificName: record.ScientificName,
		Category:       record.Category,
		DateAdded:      s.now(),
		StarRating:     rating,
	}
	favorite.Normalise()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "herb_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"english_name", "scientific_name", "category", "date_added", "star_rating",
			}),
		}).Create(&favorite).Error
	if err != nil {
		metrics.FavoriteWrites.WithLabelValues("add", "error").Inc()
		s.log.Error("add favorite failed", zap.String("herb_id", id), zap.Error(err))
		return nil, err
	}

	metrics.FavoriteWrites.WithLabelValues("add", "ok").Inc()
	s.publish("favorites.changed", map[string]any{"herb_id": id, "favorite": true})
	return &favorite, nil
}

// Remove deletes the annotation for the identifier. Removing an absent
// identifier is a no-op, not an error.
func (s *FavoriteService) Remove(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("favorite service: herb id is required")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Favorite{}, "herb_id = ?", id).Error; err != nil {
		metrics.FavoriteWrites.WithLabelValues("remove", "error").Inc()
		s.log.Error("remove favorite failed", zap.String("herb_id", id), zap.Error(err))
		return err
	}

	metrics.FavoriteWrites.WithLabelValues("remove", "ok").Inc()
	s.publish("favorites.changed", map[string]any{"herb_id": id, "favorite": false})
	return nil
}

// IsFavorite reports whether an annotation exists for the identifier.
func (s *FavoriteService) IsFavorite(ctx context.Context, id string) (bool, error) {
	if s == nil {
		return false, errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("herb_id = ?", strings.TrimSpace(id)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetRating updates the rating on an existing annotation. Identifiers
// without an annotation are left untouched.
func (s *FavoriteService) SetRating(ctx context.Context, id string, rating int) error {
	if s == nil {
		return errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}

	id = strings.TrimSpace(id)
	res := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("herb_id = ?", id).
		Update("star_rating", rating)
	if res.Error != nil {
		metrics.FavoriteWrites.WithLabelValues("set_rating", "error").Inc()
		s.log.Error("set rating failed", zap.String("herb_id", id), zap.Error(res.Error))
		return res.Error
	}

	metrics.FavoriteWrites.WithLabelValues("set_rating", "ok").Inc()
	if res.RowsAffected > 0 {
		s.publish("favorites.changed", map[string]any{"herb_id": id, "rating": rating})
	}
	return nil
}

// GetRating returns the stored rating, or 0 when no annotation exists.
func (s *FavoriteService) GetRating(ctx context.Context, id string) (int, error) {
	if s == nil {
		return 0, errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var favorite models.Favorite
	err := s.db.WithContext(ctx).First(&favorite, "herb_id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return favorite.StarRating, nil
}

// Get retrieves the annotation for an identifier, reporting absence via the
// second return.
func (s *FavoriteService) Get(ctx context.Context, id string) (*models.Favorite, bool, error) {
	if s == nil {
		return nil, false, errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var favorite models.Favorite
	err := s.db.WithContext(ctx).First(&favorite, "herb_id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &favorite, true, nil
}

// List returns all annotations ordered by date added, most recent first.
func (s *FavoriteService) List(ctx context.Context) ([]models.Favorite, error) {
	if s == nil {
		return nil, errors.New("favorite service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var favorites []models.Favorite
	if err := s.db.WithContext(ctx).Order("date_added DESC").Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("favorite service: list: %w", err)
	}
	return favorites, nil
}

func (s *FavoriteService) publish(event string, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, data)
}
