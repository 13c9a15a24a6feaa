package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/osanyin/herbal/internal/advisory"
	"github.com/osanyin/herbal/internal/models"
	"github.com/osanyin/herbal/pkg/logger"
	"github.com/osanyin/herbal/pkg/metrics"
)

// InteractionService runs herb/drug checks through an analyzer and records
// every verdict for later review.
type InteractionService struct {
	db       *gorm.DB
	analyzer advisory.Analyzer
	log      *zap.Logger
}

// NewInteractionService wires the analyzer to the persistence layer.
func NewInteractionService(db *gorm.DB, analyzer advisory.Analyzer) (*InteractionService, error) {
	if db == nil {
		return nil, errors.New("interaction service: db is required")
	}
	if analyzer == nil {
		return nil, errors.New("interaction service: analyzer is required")
	}

	return &InteractionService{
		db:       db,
		analyzer: analyzer,
		log:      logger.WithModule("interactions"),
	}, nil
}

// Check analyzes the pair and persists the verdict. Analyzer failures are
// returned to the caller; nothing is recorded for a failed check.
func (s *InteractionService) Check(ctx context.Context, herbName, drugName string) (*advisory.Report, error) {
	if s == nil {
		return nil, errors.New("interaction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	herbName = strings.TrimSpace(herbName)
	drugName = strings.TrimSpace(drugName)
	if herbName == "" || drugName == "" {
		return nil, errors.New("interaction service: herb and drug names are required")
	}

	report, err := s.analyzer.AnalyzeInteraction(ctx, herbName, drugName)
	if err != nil {
		metrics.InteractionChecks.WithLabelValues(providerLabel(report), "error").Inc()
		return nil, err
	}

	metrics.InteractionChecks.WithLabelValues(report.Provider, "ok").Inc()

	check := models.InteractionCheck{
		HerbName:       herbName,
		DrugName:       drugName,
		Severity:       report.Severity,
		Mechanism:      report.Mechanism,
		Recommendation: report.Recommendation,
		Provider:       report.Provider,
	}
	if meta, err := json.Marshal(map[string]any{"checked_at": time.Now().UTC()}); err == nil {
		check.Metadata = datatypes.JSON(meta)
	}

	if err := s.db.WithContext(ctx).Create(&check).Error; err != nil {
		// The verdict is still useful to the caller even if the audit row fails.
		s.log.Error("record interaction check failed",
			zap.String("herb", herbName),
			zap.String("drug", drugName),
			zap.Error(err))
	}

	return report, nil
}

// History returns the most recent checks, newest first, capped at limit.
func (s *InteractionService) History(ctx context.Context, limit int) ([]models.InteractionCheck, error) {
	if s == nil {
		return nil, errors.New("interaction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var checks []models.InteractionCheck
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&checks).Error
	if err != nil {
		return nil, fmt.Errorf("interaction service: history: %w", err)
	}
	return checks, nil
}

// PruneOlderThan deletes checks created before the cutoff and reports how
// many rows were removed.
func (s *InteractionService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil {
		return 0, errors.New("interaction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.InteractionCheck{})
	if res.Error != nil {
		return 0, fmt.Errorf("interaction service: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func providerLabel(report *advisory.Report) string {
	if report != nil && report.Provider != "" {
		return report.Provider
	}
	return "unknown"
}
