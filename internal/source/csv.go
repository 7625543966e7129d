package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/model"
	"MarketSeries/internal/processor"
)

// Paths locates the four input tables on disk.
type Paths struct {
	Prices          string
	SpotRates       string
	ConversionRules string
	Snapshots       string
}

// CSVLoader reads input tables from CSV files with a header row.
type CSVLoader struct {
	paths Paths
}

// NewCSVLoader creates a CSVLoader.
func NewCSVLoader(paths Paths) *CSVLoader {
	return &CSVLoader{paths: paths}
}

func (l *CSVLoader) Name() string { return "csv" }

// column aliases accepted for each logical column, first match wins.
var aliases = map[string][]string{
	"instrument_key": {"instrument_key", "ccy_pair", "security_id"},
}

type table struct {
	path    string
	columns map[string]int
	records [][]string
	lines   []int
}

func (t *table) cell(row int, col string) string {
	rec := t.records[row]
	i := t.columns[col]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) fail(row int, col string, err error) error {
	return fmt.Errorf("%w: %s line %d column %s: %v", processor.ErrMalformedInput, t.path, t.lines[row], col, err)
}

func readTable(ctx context.Context, path string, required ...string) (*table, error) {
	if path == "" {
		return nil, errors.New("no input path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %v", processor.ErrMalformedInput, path, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	t := &table{path: path, columns: make(map[string]int, len(required))}
	for _, col := range required {
		names := aliases[col]
		if names == nil {
			names = []string{col}
		}
		found := false
		for _, n := range names {
			if i, ok := index[n]; ok {
				t.columns[col] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s: missing column %s", processor.ErrMalformedInput, path, col)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", processor.ErrMalformedInput, path, err)
		}
		line, _ := r.FieldPos(0)
		t.records = append(t.records, rec)
		t.lines = append(t.lines, line)
	}
	log.Debugf("Read %d rows from %s", len(t.records), path)
	return t, nil
}

// LoadPrices reads the prices table.
func (l *CSVLoader) LoadPrices(ctx context.Context) ([]model.PriceObservation, error) {
	t, err := readTable(ctx, l.paths.Prices, "timestamp", "instrument_key", "price")
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	out := make([]model.PriceObservation, len(t.records))
	for i := range t.records {
		ts, err := ParseTime(t.cell(i, "timestamp"))
		if err != nil {
			return nil, t.fail(i, "timestamp", err)
		}
		price, err := ParseFloat(t.cell(i, "price"))
		if err != nil {
			return nil, t.fail(i, "price", err)
		}
		out[i] = model.PriceObservation{Timestamp: ts, InstrumentKey: t.cell(i, "instrument_key"), Price: price}
	}
	return out, nil
}

// LoadSpotRates reads the spot_rates table.
func (l *CSVLoader) LoadSpotRates(ctx context.Context) ([]model.SpotRateObservation, error) {
	t, err := readTable(ctx, l.paths.SpotRates, "timestamp", "instrument_key", "spot_mid_rate")
	if err != nil {
		return nil, fmt.Errorf("load spot rates: %w", err)
	}
	out := make([]model.SpotRateObservation, len(t.records))
	for i := range t.records {
		ts, err := ParseTime(t.cell(i, "timestamp"))
		if err != nil {
			return nil, t.fail(i, "timestamp", err)
		}
		rate, err := ParseFloat(t.cell(i, "spot_mid_rate"))
		if err != nil {
			return nil, t.fail(i, "spot_mid_rate", err)
		}
		out[i] = model.SpotRateObservation{Timestamp: ts, InstrumentKey: t.cell(i, "instrument_key"), SpotMidRate: rate}
	}
	return out, nil
}

// LoadConversionRules reads the conversion_rules table. Empty cells are absent values.
func (l *CSVLoader) LoadConversionRules(ctx context.Context) ([]model.ConversionRule, error) {
	t, err := readTable(ctx, l.paths.ConversionRules, "instrument_key", "convert_price", "conversion_factor")
	if err != nil {
		return nil, fmt.Errorf("load conversion rules: %w", err)
	}
	out := make([]model.ConversionRule, len(t.records))
	for i := range t.records {
		convert, err := ParseOptionalBool(t.cell(i, "convert_price"))
		if err != nil {
			return nil, t.fail(i, "convert_price", err)
		}
		factor, err := ParseOptionalFloat(t.cell(i, "conversion_factor"))
		if err != nil {
			return nil, t.fail(i, "conversion_factor", err)
		}
		out[i] = model.ConversionRule{
			InstrumentKey:    t.cell(i, "instrument_key"),
			ConvertPrice:     convert,
			ConversionFactor: factor,
		}
	}
	return out, nil
}

// LoadSnapshots reads the snapshots table.
func (l *CSVLoader) LoadSnapshots(ctx context.Context) ([]model.SnapshotRow, error) {
	t, err := readTable(ctx, l.paths.Snapshots, "snap_time", "instrument_key", "bid", "mid", "ask")
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	out := make([]model.SnapshotRow, len(t.records))
	for i := range t.records {
		ts, err := ParseTime(t.cell(i, "snap_time"))
		if err != nil {
			return nil, t.fail(i, "snap_time", err)
		}
		row := model.SnapshotRow{SnapTime: ts, InstrumentKey: t.cell(i, "instrument_key")}
		for _, c := range []struct {
			name string
			dst  *float64
		}{{"bid", &row.Bid}, {"mid", &row.Mid}, {"ask", &row.Ask}} {
			v, err := ParseFloat(t.cell(i, c.name))
			if err != nil {
				return nil, t.fail(i, c.name, err)
			}
			*c.dst = v
		}
		out[i] = row
	}
	return out, nil
}
