package exporter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketSeries/internal/model"
)

// TimeLayout is the timestamp layout of exported cells. Times are written in UTC.
const TimeLayout = time.RFC3339Nano

// PricedHeader lists the priced_rows columns.
var PricedHeader = []string{
	"timestamp", "instrument_key", "price", "spot_mid_rate", "convert_price", "conversion_factor", "final_price",
}

// StatHeader lists the stat_rows columns.
var StatHeader = []string{"instrument_key", "snap_time", "bid_std", "mid_std", "ask_std"}

// FormatFinalPrice renders a number, or "missing a, b" for a diagnostic.
func FormatFinalPrice(p model.FinalPrice) string {
	if v, ok := p.Value(); ok {
		return FormatFloat(v)
	}
	missing := p.Missing()
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return "missing " + strings.Join(names, ", ")
}

// FormatFloat renders v with the fewest digits that round-trip.
func FormatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// FormatOptionalFloat renders an absent value as an empty cell.
func FormatOptionalFloat(f model.OptionalFloat) string {
	if v, ok := f.Get(); ok {
		return FormatFloat(v)
	}
	return ""
}

// FormatOptionalBool renders an absent value as an empty cell.
func FormatOptionalBool(b model.OptionalBool) string {
	if v, ok := b.Get(); ok {
		return strconv.FormatBool(v)
	}
	return ""
}

// FormatTime renders t in UTC with TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// PricedRecord renders a priced row in PricedHeader order.
func PricedRecord(r model.PricedRow) []string {
	return []string{
		FormatTime(r.Timestamp),
		r.InstrumentKey,
		FormatFloat(r.Price),
		FormatOptionalFloat(r.SpotMidRate),
		FormatOptionalBool(r.ConvertPrice),
		FormatOptionalFloat(r.ConversionFactor),
		FormatFinalPrice(r.FinalPrice),
	}
}

// StatRecord renders a stat row in StatHeader order.
func StatRecord(r model.StatRow) []string {
	return []string{
		r.InstrumentKey,
		FormatTime(r.SnapTime),
		FormatOptionalFloat(r.BidStd),
		FormatOptionalFloat(r.MidStd),
		FormatOptionalFloat(r.AskStd),
	}
}

// FormatRunSummary formats a finished run for the log.
func FormatRunSummary(s *model.RunSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s run %s finished in %s: ", s.Pipeline, s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("%d input rows, %d output rows", s.InputRows, s.OutputRows))
	if s.Diagnostics > 0 {
		b.WriteString(fmt.Sprintf(", %d diagnostics", s.Diagnostics))
	}
	return b.String()
}
