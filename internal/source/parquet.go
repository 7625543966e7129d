package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/model"
	"MarketSeries/internal/processor"
)

// instrumentKey picks the instrument column of a parquet row: instrument_key, ccy_pair
// (rates files) or an integer security_id (stdev files), first present wins.
func instrumentKey(key, ccyPair string, securityID *int64) string {
	switch {
	case key != "":
		return key
	case ccyPair != "":
		return ccyPair
	case securityID != nil:
		return strconv.FormatInt(*securityID, 10)
	}
	return ""
}

// Parquet row layouts. Every column is optional because pandas writes nullable columns.
type priceRecord struct {
	Timestamp     time.Time `parquet:"timestamp,optional,timestamp(nanosecond)"`
	InstrumentKey string    `parquet:"instrument_key,optional"`
	CcyPair       string    `parquet:"ccy_pair,optional"`
	SecurityID    *int64    `parquet:"security_id,optional"`
	Price         *float64  `parquet:"price,optional"`
}

type spotRateRecord struct {
	Timestamp     time.Time `parquet:"timestamp,optional,timestamp(nanosecond)"`
	InstrumentKey string    `parquet:"instrument_key,optional"`
	CcyPair       string    `parquet:"ccy_pair,optional"`
	SecurityID    *int64    `parquet:"security_id,optional"`
	SpotMidRate   *float64  `parquet:"spot_mid_rate,optional"`
}

type snapshotRecord struct {
	SnapTime      time.Time `parquet:"snap_time,optional,timestamp(nanosecond)"`
	InstrumentKey string    `parquet:"instrument_key,optional"`
	CcyPair       string    `parquet:"ccy_pair,optional"`
	SecurityID    *int64    `parquet:"security_id,optional"`
	Bid           *float64  `parquet:"bid,optional"`
	Mid           *float64  `parquet:"mid,optional"`
	Ask           *float64  `parquet:"ask,optional"`
}

// IsParquet reports whether path names a parquet file, including the
// pandas-style ".parq.gzip" suffix.
func IsParquet(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".parquet") || strings.HasSuffix(name, ".parq") || strings.Contains(name, ".parq.")
}

// NewLoader picks a ParquetLoader when any data table is a parquet file and a CSVLoader otherwise.
func NewLoader(paths Paths) Loader {
	if IsParquet(paths.Prices) || IsParquet(paths.SpotRates) || IsParquet(paths.Snapshots) {
		return NewParquetLoader(paths)
	}
	return NewCSVLoader(paths)
}

// ParquetLoader reads prices, spot rates and snapshots from parquet files. Conversion
// rules, and any table whose path is not a parquet file, are read as CSV.
type ParquetLoader struct {
	paths Paths
	csv   *CSVLoader
}

// NewParquetLoader creates a ParquetLoader.
func NewParquetLoader(paths Paths) *ParquetLoader {
	return &ParquetLoader{paths: paths, csv: NewCSVLoader(paths)}
}

func (l *ParquetLoader) Name() string { return "parquet" }

func readParquet[T any](ctx context.Context, path string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Debugf("Read %d rows from %s", len(rows), path)
	return rows, nil
}

func requireValue(path string, row int, col string, v *float64) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: %s row %d column %s: null value", processor.ErrMalformedInput, path, row+1, col)
	}
	return *v, nil
}

// LoadPrices reads the prices table.
func (l *ParquetLoader) LoadPrices(ctx context.Context) ([]model.PriceObservation, error) {
	path := l.paths.Prices
	if !IsParquet(path) {
		return l.csv.LoadPrices(ctx)
	}
	recs, err := readParquet[priceRecord](ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	out := make([]model.PriceObservation, len(recs))
	for i, r := range recs {
		price, err := requireValue(path, i, "price", r.Price)
		if err != nil {
			return nil, err
		}
		out[i] = model.PriceObservation{Timestamp: r.Timestamp, InstrumentKey: instrumentKey(r.InstrumentKey, r.CcyPair, r.SecurityID), Price: price}
	}
	return out, nil
}

// LoadSpotRates reads the spot_rates table.
func (l *ParquetLoader) LoadSpotRates(ctx context.Context) ([]model.SpotRateObservation, error) {
	path := l.paths.SpotRates
	if !IsParquet(path) {
		return l.csv.LoadSpotRates(ctx)
	}
	recs, err := readParquet[spotRateRecord](ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load spot rates: %w", err)
	}
	out := make([]model.SpotRateObservation, len(recs))
	for i, r := range recs {
		rate, err := requireValue(path, i, "spot_mid_rate", r.SpotMidRate)
		if err != nil {
			return nil, err
		}
		out[i] = model.SpotRateObservation{Timestamp: r.Timestamp, InstrumentKey: instrumentKey(r.InstrumentKey, r.CcyPair, r.SecurityID), SpotMidRate: rate}
	}
	return out, nil
}

// LoadConversionRules reads the conversion_rules table, which is always CSV.
func (l *ParquetLoader) LoadConversionRules(ctx context.Context) ([]model.ConversionRule, error) {
	return l.csv.LoadConversionRules(ctx)
}

// LoadSnapshots reads the snapshots table.
func (l *ParquetLoader) LoadSnapshots(ctx context.Context) ([]model.SnapshotRow, error) {
	path := l.paths.Snapshots
	if !IsParquet(path) {
		return l.csv.LoadSnapshots(ctx)
	}
	recs, err := readParquet[snapshotRecord](ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	out := make([]model.SnapshotRow, len(recs))
	for i, r := range recs {
		row := model.SnapshotRow{SnapTime: r.SnapTime, InstrumentKey: instrumentKey(r.InstrumentKey, r.CcyPair, r.SecurityID)}
		if row.Bid, err = requireValue(path, i, "bid", r.Bid); err != nil {
			return nil, err
		}
		if row.Mid, err = requireValue(path, i, "mid", r.Mid); err != nil {
			return nil, err
		}
		if row.Ask, err = requireValue(path, i, "ask", r.Ask); err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}
