package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"MarketSeries/internal/model"
)

var ts = time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)

func pricedFixture() []model.PricedRow {
	return []model.PricedRow{
		{
			JoinedRow: model.JoinedRow{
				Timestamp: ts, InstrumentKey: "EURUSD1", Price: 11000,
				SpotMidRate: model.FloatOf(1.2), ConvertPrice: model.BoolOf(true), ConversionFactor: model.FloatOf(100),
			},
			FinalPrice: model.Numeric(111.2),
		},
		{
			JoinedRow: model.JoinedRow{
				Timestamp: ts, InstrumentKey: "EURUSD5", Price: 12000, ConvertPrice: model.BoolOf(true),
			},
			FinalPrice: model.Diagnostic(model.FieldConversionFactor, model.FieldSpotMidRate),
		},
	}
}

func statFixture() []model.StatRow {
	return []model.StatRow{
		{SnapTime: ts, InstrumentKey: "101"},
		{SnapTime: ts.Add(time.Hour), InstrumentKey: "101", BidStd: model.FloatOf(0.5), MidStd: model.FloatOf(1), AskStd: model.NoFloat()},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVExporter_Priced(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	path, err := NewCSVExporter(dir, "", "").ExportPriced(context.Background(), pricedFixture())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultPricedFile), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, PricedHeader, records[0])
	assert.Equal(t, []string{"2025-10-16T12:00:00Z", "EURUSD1", "11000", "1.2", "true", "100", "111.2"}, records[1])
	assert.Equal(t, []string{"2025-10-16T12:00:00Z", "EURUSD5", "12000", "", "true", "", "missing conversion_factor, spot_mid_rate"}, records[2])
}

func TestCSVExporter_Stats(t *testing.T) {
	dir := t.TempDir()
	path, err := NewCSVExporter(dir, "p.csv", "s.csv").ExportStats(context.Background(), statFixture())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "s.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, StatHeader, records[0])
	assert.Equal(t, []string{"101", "2025-10-16T12:00:00Z", "", "", ""}, records[1])
	assert.Equal(t, []string{"101", "2025-10-16T13:00:00Z", "0.5", "1", ""}, records[2])

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCSVExporter_EmptyTableWritesHeader(t *testing.T) {
	path, err := NewCSVExporter(t.TempDir(), "", "").ExportStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{StatHeader}, readCSV(t, path))
}

func TestXLSXExporter_BothSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.xlsx")
	e := NewXLSXExporter(path)

	_, err := e.ExportPriced(context.Background(), pricedFixture())
	require.NoError(t, err)
	_, err = e.ExportStats(context.Background(), statFixture())
	require.NoError(t, err)
	// Re-exporting replaces the sheet rather than appending.
	_, err = e.ExportPriced(context.Background(), pricedFixture()[:1])
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{PricedSheet, StatSheet}, f.GetSheetList())

	priced, err := f.GetRows(PricedSheet)
	require.NoError(t, err)
	require.Len(t, priced, 2)
	assert.Equal(t, PricedHeader, priced[0])
	assert.Equal(t, "EURUSD1", priced[1][1])
	assert.Equal(t, "111.2", priced[1][6])

	stats, err := f.GetRows(StatSheet)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "0.5", stats[2][2])
}

type failingExporter struct{}

func (failingExporter) ExportPriced(context.Context, []model.PricedRow) (string, error) {
	return "", errors.New("disk full")
}

func (failingExporter) ExportStats(context.Context, []model.StatRow) (string, error) {
	return "", errors.New("disk full")
}

func TestMulti_CollectsErrors(t *testing.T) {
	dir := t.TempDir()
	m := Multi{NewCSVExporter(dir, "", ""), failingExporter{}}

	path, err := m.ExportPriced(context.Background(), pricedFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, filepath.Join(dir, DefaultPricedFile), path)
	assert.FileExists(t, path)
}

func TestXLSXExporter_ReplacesOnlySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	e := NewXLSXExporter(path)

	_, err := e.ExportPriced(context.Background(), pricedFixture())
	require.NoError(t, err)
	_, err = e.ExportPriced(context.Background(), pricedFixture()[1:])
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PricedSheet}, f.GetSheetList())
	rows, err := f.GetRows(PricedSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "EURUSD5", rows[1][1])
	assert.Equal(t, "missing conversion_factor, spot_mid_rate", rows[1][6])
}
