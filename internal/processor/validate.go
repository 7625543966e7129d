package processor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"MarketSeries/internal/model"
)

// ErrMalformedInput is returned when an input table cannot be processed. No rows are produced.
var ErrMalformedInput = errors.New("malformed input")

type identity struct {
	at  int64
	key string
}

func identityOf(t time.Time, key string) identity {
	return identity{at: t.UnixNano(), key: key}
}

func malformed(table string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedInput, table, fmt.Sprintf(format, args...))
}

// dedupe enforces (timestamp, instrument_key) uniqueness. With allowIdentical, repeats for which
// same reports true are collapsed onto their first occurrence; conflicting repeats are always rejected.
func dedupe[T any](table string, rows []T, id func(T) identity, same func(a, b T) bool, allowIdentical bool) ([]T, error) {
	seen := make(map[identity]int, len(rows))
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		k := id(r)
		if j, ok := seen[k]; ok {
			if allowIdentical && same(out[j], r) {
				continue
			}
			return nil, malformed(table, "row %d duplicates %s at %s",
				i+1, k.key, time.Unix(0, k.at).UTC().Format(time.RFC3339Nano))
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func checkRow(table string, i int, key string, ts time.Time, values map[string]float64) error {
	if key == "" {
		return malformed(table, "row %d has an empty instrument key", i+1)
	}
	if ts.IsZero() {
		return malformed(table, "row %d (%s) has no timestamp", i+1, key)
	}
	for col, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed(table, "row %d (%s) has non-finite %s", i+1, key, col)
		}
	}
	return nil
}

// ValidatePrices checks the prices table. Every price maps to one output row, so
// duplicates are always rejected.
func ValidatePrices(rows []model.PriceObservation) ([]model.PriceObservation, error) {
	for i, r := range rows {
		if err := checkRow("prices", i, r.InstrumentKey, r.Timestamp, map[string]float64{"price": r.Price}); err != nil {
			return nil, err
		}
	}
	return dedupe("prices", rows,
		func(r model.PriceObservation) identity { return identityOf(r.Timestamp, r.InstrumentKey) },
		nil, false)
}

// ValidateSpotRates checks the spot_rates table. This is the only table where identical repeats
// may be collapsed.
func ValidateSpotRates(rows []model.SpotRateObservation, allowIdentical bool) ([]model.SpotRateObservation, error) {
	for i, r := range rows {
		if err := checkRow("spot_rates", i, r.InstrumentKey, r.Timestamp, map[string]float64{"spot_mid_rate": r.SpotMidRate}); err != nil {
			return nil, err
		}
	}
	return dedupe("spot_rates", rows,
		func(r model.SpotRateObservation) identity { return identityOf(r.Timestamp, r.InstrumentKey) },
		func(a, b model.SpotRateObservation) bool { return a.SpotMidRate == b.SpotMidRate },
		allowIdentical)
}

// ValidateRules checks the conversion_rules table. Uniqueness is enforced by the rule book.
func ValidateRules(rows []model.ConversionRule) error {
	for i, r := range rows {
		if r.InstrumentKey == "" {
			return malformed("conversion_rules", "row %d has an empty instrument key", i+1)
		}
		if f, ok := r.ConversionFactor.Get(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return malformed("conversion_rules", "row %d (%s) has non-finite conversion_factor", i+1, r.InstrumentKey)
		}
	}
	return nil
}

// ValidateSnapshots checks the snapshots table. Duplicates are always rejected.
func ValidateSnapshots(rows []model.SnapshotRow) ([]model.SnapshotRow, error) {
	for i, r := range rows {
		values := map[string]float64{"bid": r.Bid, "mid": r.Mid, "ask": r.Ask}
		if err := checkRow("snapshots", i, r.InstrumentKey, r.SnapTime, values); err != nil {
			return nil, err
		}
	}
	return dedupe("snapshots", rows,
		func(r model.SnapshotRow) identity { return identityOf(r.SnapTime, r.InstrumentKey) },
		nil, false)
}
