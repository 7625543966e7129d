package calculator

import (
	"errors"
	"fmt"

	"MarketSeries/internal/model"
)

// DefaultWindow is the trailing window size of the rolling statistics.
const DefaultWindow = 20

// ErrInvalidWindow is returned for a non-positive window or a min_periods outside 1..window.
var ErrInvalidWindow = errors.New("invalid rolling window")

// ValidateWindow checks window and minPeriods.
func ValidateWindow(window, minPeriods int) error {
	if window <= 0 {
		return fmt.Errorf("%w: window %d must be positive", ErrInvalidWindow, window)
	}
	if minPeriods < 1 || minPeriods > window {
		return fmt.Errorf("%w: min_periods %d must be in 1..%d", ErrInvalidWindow, minPeriods, window)
	}
	return nil
}

// RollingStdDev computes the sample standard deviation over a trailing window of window positions.
//
// Absent values occupy positions but are not samples. A position yields a value only when at least
// minPeriods samples (and never fewer than two) fall in its window. At an absent position that
// still has minPeriods samples in its window, the previous position's value carries over.
func RollingStdDev(values []model.OptionalFloat, window, minPeriods int) ([]model.OptionalFloat, error) {
	if err := ValidateWindow(window, minPeriods); err != nil {
		return nil, err
	}

	out := make([]model.OptionalFloat, len(values))
	buf := make([]float64, 0, window)
	count := 0 // samples in the current window
	for i, v := range values {
		if v.Valid {
			count++
		}
		if drop := i - window; drop >= 0 && values[drop].Valid {
			count--
		}
		if count < minPeriods {
			continue
		}

		if !v.Valid {
			if i > 0 {
				out[i] = out[i-1]
			}
			continue
		}

		buf = buf[:0]
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		for _, w := range values[lo : i+1] {
			if w.Valid {
				buf = append(buf, w.Value)
			}
		}
		if sd, err := CalculateSampleStdDev(buf); err == nil {
			out[i] = model.FloatOf(sd)
		}
	}
	return out, nil
}

// RollingStats computes rolling bid/mid/ask standard deviations over one instrument's grid.
func RollingStats(grid []model.GridRow, window, minPeriods int) ([]model.StatRow, error) {
	bids := make([]model.OptionalFloat, len(grid))
	mids := make([]model.OptionalFloat, len(grid))
	asks := make([]model.OptionalFloat, len(grid))
	for i, g := range grid {
		bids[i], mids[i], asks[i] = g.Bid, g.Mid, g.Ask
	}

	bidStd, err := RollingStdDev(bids, window, minPeriods)
	if err != nil {
		return nil, fmt.Errorf("bid: %w", err)
	}
	midStd, err := RollingStdDev(mids, window, minPeriods)
	if err != nil {
		return nil, fmt.Errorf("mid: %w", err)
	}
	askStd, err := RollingStdDev(asks, window, minPeriods)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	stats := make([]model.StatRow, len(grid))
	for i, g := range grid {
		stats[i] = model.StatRow{
			SnapTime:      g.SnapTime,
			InstrumentKey: g.InstrumentKey,
			BidStd:        bidStd[i],
			MidStd:        midStd[i],
			AskStd:        askStd[i],
		}
	}
	return stats, nil
}
