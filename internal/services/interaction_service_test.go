package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osanyin/herbal/internal/advisory"
	"github.com/osanyin/herbal/internal/database/testutil"
)

type stubAnalyzer struct {
	report *advisory.Report
	err    error
	calls  int
}

func (s *stubAnalyzer) AnalyzeInteraction(_ context.Context, herbName, drugName string) (*advisory.Report, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	report := *s.report
	report.HerbName = herbName
	report.DrugName = drugName
	return &report, nil
}

func newTestInteractionService(t *testing.T, analyzer advisory.Analyzer) *InteractionService {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	service, err := NewInteractionService(db, analyzer)
	require.NoError(t, err)
	return service
}

func TestCheckRecordsVerdict(t *testing.T) {
	analyzer := &stubAnalyzer{report: &advisory.Report{
		Severity:       advisory.SeverityModerate,
		Mechanism:      "antiplatelet synergy",
		Recommendation: "Monitor for bleeding.",
		Provider:       "fallback",
	}}
	service := newTestInteractionService(t, analyzer)
	ctx := context.Background()

	report, err := service.Check(ctx, "Ginkgo", "Aspirin")
	require.NoError(t, err)
	require.Equal(t, advisory.SeverityModerate, report.Severity)
	require.Equal(t, 1, analyzer.calls)

	history, err := service.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Ginkgo", history[0].HerbName)
	require.Equal(t, "Aspirin", history[0].DrugName)
	require.Equal(t, "fallback", history[0].Provider)
	require.NotEmpty(t, history[0].ID)
}

func TestCheckValidatesInput(t *testing.T) {
	service := newTestInteractionService(t, advisory.NewFallbackAnalyzer())

	_, err := service.Check(context.Background(), "", "Aspirin")
	require.Error(t, err)
	_, err = service.Check(context.Background(), "Ginkgo", "   ")
	require.Error(t, err)
}

func TestCheckAnalyzerFailureRecordsNothing(t *testing.T) {
	analyzer := &stubAnalyzer{err: advisory.ErrUnavailable}
	service := newTestInteractionService(t, analyzer)
	ctx := context.Background()

	_, err := service.Check(ctx, "Ginger", "Warfarin")
	require.ErrorIs(t, err, advisory.ErrUnavailable)

	history, err := service.History(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestHistoryNewestFirstAndCapped(t *testing.T) {
	service := newTestInteractionService(t, advisory.NewFallbackAnalyzer())
	ctx := context.Background()

	pairs := []struct{ herb, drug string }{
		{"Ginger", "Warfarin"},
		{"Garlic", "Warfarin"},
		{"Kava", "Alprazolam"},
	}
	for _, p := range pairs {
		_, err := service.Check(ctx, p.herb, p.drug)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	history, err := service.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Kava", history[0].HerbName)
}

func TestPruneOlderThan(t *testing.T) {
	service := newTestInteractionService(t, advisory.NewFallbackAnalyzer())
	ctx := context.Background()

	_, err := service.Check(ctx, "Ginger", "Warfarin")
	require.NoError(t, err)

	removed, err := service.PruneOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, removed)

	removed, err = service.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}

func TestNewInteractionServiceValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	_, err := NewInteractionService(nil, advisory.NewFallbackAnalyzer())
	require.Error(t, err)
	_, err = NewInteractionService(db, nil)
	require.Error(t, err)
}
