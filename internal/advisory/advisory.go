package advisory

import (
	"context"
	"errors"
)

// Severity levels reported by analyzers, ordered from benign to dangerous.
const (
	SeverityNone     = "none"
	SeverityLow      = "low"
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
)

// ErrUnavailable indicates the analyzer could not produce a verdict, for
// example because the upstream service is unreachable or misconfigured.
// Callers should surface a degraded-but-working experience rather than fail.
var ErrUnavailable = errors.New("advisory: analyzer unavailable")

// Report is a single herb/drug interaction verdict.
type Report struct {
	HerbName       string `json:"herb_name"`
	DrugName       string `json:"drug_name"`
	Severity       string `json:"severity"`
	Mechanism      string `json:"mechanism"`
	Recommendation string `json:"recommendation"`
	Provider       string `json:"provider"`
}

// Analyzer produces interaction reports. Implementations must be safe for
// concurrent use.
type Analyzer interface {
	AnalyzeInteraction(ctx context.Context, herbName, drugName string) (*Report, error)
}

func validSeverity(s string) bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityModerate, SeverityHigh:
		return true
	}
	return false
}
