package recorder

import (
	"context"

	"github.com/google/uuid"

	"MarketSeries/internal/model"
)

// Recorder persists pipeline runs and their result rows for later analysis.
type Recorder interface {
	RecordRun(ctx context.Context, run *model.RunSummary) error
	RecordPriced(ctx context.Context, runID string, rows []model.PricedRow) error
	RecordStats(ctx context.Context, runID string, rows []model.StatRow) error
	RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }
