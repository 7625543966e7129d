package recorder

import (
	"context"

	"MarketSeries/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *model.RunSummary) error              { return nil }
func (n *NoopRecorder) RecordPriced(context.Context, string, []model.PricedRow) error { return nil }
func (n *NoopRecorder) RecordStats(context.Context, string, []model.StatRow) error    { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]model.RunSummary, error)   { return nil, nil }
func (n *NoopRecorder) Close() error                                                  { return nil }
