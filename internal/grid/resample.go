// Package grid rebuilds a regular per-instrument time index from irregular snapshots.
package grid

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"MarketSeries/internal/model"
)

// DefaultFrequency is the tick spacing of the grid.
const DefaultFrequency = time.Hour

var (
	// ErrInvalidFrequency is returned for a non-positive frequency.
	ErrInvalidFrequency = errors.New("frequency must be positive")
	// ErrOffGrid is returned when a snapshot does not fall on a tick of the grid.
	ErrOffGrid = errors.New("snapshot is not on a grid tick")
	// ErrMixedKeys is returned when one call receives snapshots of several instruments.
	ErrMixedKeys = errors.New("snapshots of more than one instrument")
	// ErrDuplicateTick is returned when two snapshots fall on the same tick.
	ErrDuplicateTick = errors.New("duplicate snapshot for tick")
)

// Resample lays the snapshots of one instrument onto a grid spanning the first to the last
// snap_time inclusive. Ticks without an observation carry absent values; nothing is filled.
func Resample(rows []model.SnapshotRow, freq time.Duration) ([]model.GridRow, error) {
	if freq <= 0 {
		return nil, ErrInvalidFrequency
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sorted := make([]model.SnapshotRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SnapTime.Before(sorted[j].SnapTime) })

	key := sorted[0].InstrumentKey
	first := sorted[0].SnapTime
	last := sorted[len(sorted)-1].SnapTime
	grid := make([]model.GridRow, TickCount(first, last, freq))
	for i := range grid {
		grid[i] = model.GridRow{SnapTime: first.Add(time.Duration(i) * freq), InstrumentKey: key}
	}

	for _, r := range sorted {
		if r.InstrumentKey != key {
			return nil, fmt.Errorf("%w: %q and %q", ErrMixedKeys, key, r.InstrumentKey)
		}
		offset := r.SnapTime.Sub(first)
		if offset%freq != 0 {
			return nil, fmt.Errorf("%w: %s at %s (grid starts %s, every %s)",
				ErrOffGrid, key, r.SnapTime.Format(time.RFC3339), first.Format(time.RFC3339), freq)
		}
		i := int(offset / freq)
		if grid[i].Observed() {
			return nil, fmt.Errorf("%w: %s at %s", ErrDuplicateTick, key, r.SnapTime.Format(time.RFC3339))
		}
		grid[i].Bid = model.FloatOf(r.Bid)
		grid[i].Mid = model.FloatOf(r.Mid)
		grid[i].Ask = model.FloatOf(r.Ask)
	}
	return grid, nil
}

// TickCount returns the number of grid rows spanning first..last at freq.
func TickCount(first, last time.Time, freq time.Duration) int {
	if freq <= 0 || last.Before(first) {
		return 0
	}
	return int(last.Sub(first)/freq) + 1
}
