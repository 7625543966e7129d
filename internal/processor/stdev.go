package processor

import (
	"context"
	"fmt"
	"time"

	"MarketSeries/internal/calculator"
	"MarketSeries/internal/grid"
	"MarketSeries/internal/model"
)

// StdevOptions configures the stdev pipeline. MinPeriods of 0 means equal to Window.
type StdevOptions struct {
	Frequency  time.Duration
	Window     int
	MinPeriods int
	Workers    int
}

// StdevProcessor resamples snapshots onto a regular grid and computes rolling standard deviations.
type StdevProcessor struct {
	opts StdevOptions
}

// NewStdevProcessor validates opts and creates a StdevProcessor.
func NewStdevProcessor(opts StdevOptions) (*StdevProcessor, error) {
	if opts.Frequency <= 0 {
		return nil, fmt.Errorf("stdev processor: %w", grid.ErrInvalidFrequency)
	}
	if opts.MinPeriods == 0 {
		opts.MinPeriods = opts.Window
	}
	if err := calculator.ValidateWindow(opts.Window, opts.MinPeriods); err != nil {
		return nil, fmt.Errorf("stdev processor: %w", err)
	}
	return &StdevProcessor{opts: opts}, nil
}

// Options returns the effective options.
func (p *StdevProcessor) Options() StdevOptions { return p.opts }

// Process returns one stat row per grid tick, grouped by instrument (ascending) and ordered
// by snap_time within an instrument.
func (p *StdevProcessor) Process(ctx context.Context, snapshots []model.SnapshotRow) ([]model.StatRow, error) {
	rows, err := ValidateSnapshots(snapshots)
	if err != nil {
		return nil, err
	}

	keys, groups := model.Partition(rows, func(r model.SnapshotRow) string { return r.InstrumentKey })
	return fanOut(ctx, p.opts.Workers, keys, groups, func(key string, rows []model.SnapshotRow) ([]model.StatRow, error) {
		g, err := grid.Resample(rows, p.opts.Frequency)
		if err != nil {
			return nil, fmt.Errorf("%w: snapshots: %w", ErrMalformedInput, err)
		}
		stats, err := calculator.RollingStats(g, p.opts.Window, p.opts.MinPeriods)
		if err != nil {
			return nil, fmt.Errorf("rolling stats for %s: %w", key, err)
		}
		return stats, nil
	})
}
