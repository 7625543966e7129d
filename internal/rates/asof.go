// Package rates attaches as-of spot rates to prices and applies per-instrument conversion rules.
package rates

import (
	"errors"
	"sort"
	"time"

	"MarketSeries/internal/model"
)

// DefaultTolerance is the maximum lookback of the as-of join.
const DefaultTolerance = time.Hour

// ErrInvalidTolerance is returned for a non-positive join tolerance.
var ErrInvalidTolerance = errors.New("tolerance must be positive")

// Joiner performs backward, tolerance-bounded as-of joins.
type Joiner struct {
	tolerance time.Duration
}

// NewJoiner creates a Joiner with the given lookback tolerance.
func NewJoiner(tolerance time.Duration) (*Joiner, error) {
	if tolerance <= 0 {
		return nil, ErrInvalidTolerance
	}
	return &Joiner{tolerance: tolerance}, nil
}

// JoinKey joins the prices and spot rates of a single instrument.
// For a price at T it selects the spot rate with the greatest S <= T where T-S <= tolerance.
// Among spot rates sharing a timestamp the last one in input order wins.
func (j *Joiner) JoinKey(prices []model.PriceObservation, spots []model.SpotRateObservation) []model.JoinedRow {
	ps := make([]model.PriceObservation, len(prices))
	copy(ps, prices)
	sort.SliceStable(ps, func(a, b int) bool { return ps[a].Timestamp.Before(ps[b].Timestamp) })

	ss := make([]model.SpotRateObservation, len(spots))
	copy(ss, spots)
	sort.SliceStable(ss, func(a, b int) bool { return ss[a].Timestamp.Before(ss[b].Timestamp) })

	out := make([]model.JoinedRow, len(ps))
	next := 0 // first spot strictly after the current price
	for i, p := range ps {
		for next < len(ss) && !ss[next].Timestamp.After(p.Timestamp) {
			next++
		}
		row := model.JoinedRow{
			Timestamp:     p.Timestamp,
			InstrumentKey: p.InstrumentKey,
			Price:         p.Price,
		}
		if next > 0 {
			prior := ss[next-1]
			if p.Timestamp.Sub(prior.Timestamp) <= j.tolerance {
				row.SpotMidRate = model.FloatOf(prior.SpotMidRate)
			}
		}
		out[i] = row
	}
	return out
}
