package recorder

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSeries/internal/model"
)

func openTest(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestSQLiteRecorder_Runs(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	start := time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)

	older := &model.RunSummary{RunID: NewRunID(), Pipeline: model.PipelineRates, StartedAt: start, FinishedAt: start.Add(time.Second), InputRows: 8, OutputRows: 8, Diagnostics: 4}
	newer := &model.RunSummary{RunID: NewRunID(), Pipeline: model.PipelineStdev, StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + time.Second), InputRows: 21, OutputRows: 21}
	require.NoError(t, r.RecordRun(ctx, older))
	require.NoError(t, r.RecordRun(ctx, newer))

	runs, err := r.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, *newer, runs[0])
	assert.Equal(t, *older, runs[1])

	runs, err = r.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	assert.Error(t, r.RecordRun(ctx, older), "run ids are unique")
}

func TestSQLiteRecorder_PricedRows(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	ts := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	runID := NewRunID()

	rows := []model.PricedRow{
		{
			JoinedRow:  model.JoinedRow{Timestamp: ts, InstrumentKey: "EURUSD1", Price: 11000, SpotMidRate: model.FloatOf(1.2), ConvertPrice: model.BoolOf(true), ConversionFactor: model.FloatOf(100)},
			FinalPrice: model.Numeric(111.2),
		},
		{
			JoinedRow:  model.JoinedRow{Timestamp: ts, InstrumentKey: "EURUSD5", Price: 12000, ConvertPrice: model.BoolOf(true)},
			FinalPrice: model.Diagnostic(model.FieldConversionFactor, model.FieldSpotMidRate),
		},
	}
	require.NoError(t, r.RecordPriced(ctx, runID, rows))

	var final sql.NullFloat64
	var missing sql.NullString
	var spot sql.NullFloat64
	require.NoError(t, r.db.QueryRow(`SELECT final_price, missing_fields, spot_mid_rate FROM priced_rows WHERE instrument_key = ?`, "EURUSD5").
		Scan(&final, &missing, &spot))
	assert.False(t, final.Valid)
	assert.False(t, spot.Valid)
	assert.Equal(t, "conversion_factor,spot_mid_rate", missing.String)

	require.NoError(t, r.db.QueryRow(`SELECT final_price, missing_fields FROM priced_rows WHERE instrument_key = ?`, "EURUSD1").
		Scan(&final, &missing))
	assert.InDelta(t, 111.2, final.Float64, 1e-9)
	assert.False(t, missing.Valid)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM priced_rows WHERE run_id = ?`, runID).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLiteRecorder_StatRows(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	ts := time.Date(2021, 11, 20, 0, 0, 0, 0, time.UTC)
	runID := NewRunID()

	rows := []model.StatRow{
		{SnapTime: ts, InstrumentKey: "101"},
		{SnapTime: ts.Add(time.Hour), InstrumentKey: "101", BidStd: model.FloatOf(0.5), MidStd: model.FloatOf(0.5), AskStd: model.FloatOf(0.5)},
	}
	require.NoError(t, r.RecordStats(ctx, runID, rows))

	var absent, present int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM stat_rows WHERE run_id = ? AND bid_std IS NULL`, runID).Scan(&absent))
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM stat_rows WHERE run_id = ? AND bid_std IS NOT NULL`, runID).Scan(&present))
	assert.Equal(t, 1, absent)
	assert.Equal(t, 1, present)
}

func TestNewSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordRun(context.Background(), &model.RunSummary{RunID: "a", Pipeline: model.PipelineRates}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	runs, err := r.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	ctx := context.Background()
	assert.NoError(t, r.RecordRun(ctx, &model.RunSummary{}))
	assert.NoError(t, r.RecordPriced(ctx, "x", nil))
	assert.NoError(t, r.RecordStats(ctx, "x", nil))
	runs, err := r.RecentRuns(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
