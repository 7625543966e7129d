package model

import "time"

// SnapshotRow is an irregularly captured bid/mid/ask snapshot.
type SnapshotRow struct {
	SnapTime      time.Time
	InstrumentKey string
	Bid           float64
	Mid           float64
	Ask           float64
}

// GridRow is one tick of a regular per-instrument grid. Absent values mark ticks with no observation.
type GridRow struct {
	SnapTime      time.Time
	InstrumentKey string
	Bid           OptionalFloat
	Mid           OptionalFloat
	Ask           OptionalFloat
}

// Observed reports whether the tick carries an observation.
func (g GridRow) Observed() bool {
	return g.Bid.Valid || g.Mid.Valid || g.Ask.Valid
}

// StatRow holds rolling standard deviations for one grid tick.
type StatRow struct {
	SnapTime      time.Time
	InstrumentKey string
	BidStd        OptionalFloat
	MidStd        OptionalFloat
	AskStd        OptionalFloat
}
