package processor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSeries/internal/calculator"
	"MarketSeries/internal/grid"
	"MarketSeries/internal/model"
)

var snapStart = time.Date(2021, 11, 20, 0, 0, 0, 0, time.UTC)

func hourlySnapshots(key string, n int, skip ...int) []model.SnapshotRow {
	skipped := make(map[int]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var rows []model.SnapshotRow
	for i := 0; i < n; i++ {
		if skipped[i] {
			continue
		}
		v := float64(i)
		rows = append(rows, model.SnapshotRow{
			SnapTime:      snapStart.Add(time.Duration(i) * time.Hour),
			InstrumentKey: key,
			Bid:           v,
			Mid:           v + 10,
			Ask:           v + 20,
		})
	}
	return rows
}

func newStdev(t *testing.T, window, minPeriods int) *StdevProcessor {
	t.Helper()
	p, err := NewStdevProcessor(StdevOptions{
		Frequency:  time.Hour,
		Window:     window,
		MinPeriods: minPeriods,
		Workers:    2,
	})
	require.NoError(t, err)
	return p
}

func TestStdevProcessor_TwoWindows(t *testing.T) {
	stats, err := newStdev(t, 20, 0).Process(context.Background(), hourlySnapshots("101", 21))
	require.NoError(t, err)
	require.Len(t, stats, 21)

	for i := 0; i < 19; i++ {
		assert.False(t, stats[i].BidStd.Valid, "index %d", i)
	}
	first := make([]float64, 20)
	second := make([]float64, 20)
	for i := range first {
		first[i] = float64(i)
		second[i] = float64(i + 1)
	}
	want1, err := calculator.CalculateSampleStdDev(first)
	require.NoError(t, err)
	want2, err := calculator.CalculateSampleStdDev(second)
	require.NoError(t, err)

	assert.InDelta(t, want1, stats[19].BidStd.Value, 1e-12)
	assert.InDelta(t, want2, stats[20].BidStd.Value, 1e-12)
	// Shifting a series does not change its deviation.
	assert.InDelta(t, want1, stats[19].MidStd.Value, 1e-12)
	assert.InDelta(t, want1, stats[19].AskStd.Value, 1e-12)
}

func TestStdevProcessor_Insufficient(t *testing.T) {
	stats, err := newStdev(t, 20, 0).Process(context.Background(), hourlySnapshots("101", 19))
	require.NoError(t, err)
	require.Len(t, stats, 19)
	for _, s := range stats {
		assert.False(t, s.BidStd.Valid || s.MidStd.Valid || s.AskStd.Valid)
	}
}

func TestStdevProcessor_GapIsRepresented(t *testing.T) {
	stats, err := newStdev(t, 20, 15).Process(context.Background(), hourlySnapshots("101", 52, 30))
	require.NoError(t, err)
	require.Len(t, stats, 52)

	assert.Equal(t, snapStart.Add(30*time.Hour), stats[30].SnapTime)
	// Nineteen samples remain in the window so the previous value is carried.
	assert.True(t, stats[30].BidStd.Valid)
	assert.Equal(t, stats[29].BidStd, stats[30].BidStd)
	for i := 14; i < 52; i++ {
		assert.True(t, stats[i].BidStd.Valid, "index %d", i)
	}
}

func TestStdevProcessor_GroupsByKey(t *testing.T) {
	rows := append(hourlySnapshots("B", 3), hourlySnapshots("A", 2)...)
	stats, err := newStdev(t, 2, 0).Process(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, stats, 5)

	var keys []string
	for _, s := range stats {
		keys = append(keys, s.InstrumentKey)
	}
	assert.Equal(t, []string{"A", "A", "B", "B", "B"}, keys)
	assert.False(t, stats[0].BidStd.Valid)
	assert.InDelta(t, math.Sqrt(0.5), stats[1].BidStd.Value, 1e-12)
}

func TestStdevProcessor_OffGridIsFatal(t *testing.T) {
	rows := hourlySnapshots("101", 5)
	rows[3].SnapTime = rows[3].SnapTime.Add(30 * time.Minute)

	stats, err := newStdev(t, 3, 0).Process(context.Background(), rows)
	require.ErrorIs(t, err, ErrMalformedInput)
	assert.ErrorIs(t, err, grid.ErrOffGrid)
	assert.Nil(t, stats)
}

func TestStdevProcessor_Duplicates(t *testing.T) {
	rows := hourlySnapshots("101", 4)

	t.Run("identical", func(t *testing.T) {
		in := append(append([]model.SnapshotRow{}, rows...), rows[1])
		stats, err := newStdev(t, 3, 0).Process(context.Background(), in)
		require.ErrorIs(t, err, ErrMalformedInput)
		assert.Nil(t, stats)
	})
	t.Run("conflicting", func(t *testing.T) {
		dup := rows[1]
		dup.Bid = 99
		in := append(append([]model.SnapshotRow{}, rows...), dup)
		_, err := newStdev(t, 3, 0).Process(context.Background(), in)
		require.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestStdevProcessor_NonFiniteValue(t *testing.T) {
	rows := hourlySnapshots("101", 4)
	rows[2].Mid = math.NaN()
	_, err := newStdev(t, 3, 0).Process(context.Background(), rows)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestNewStdevProcessor_Options(t *testing.T) {
	p := newStdev(t, 20, 0)
	assert.Equal(t, 20, p.Options().MinPeriods)

	_, err := NewStdevProcessor(StdevOptions{Frequency: 0, Window: 20})
	assert.ErrorIs(t, err, grid.ErrInvalidFrequency)

	_, err = NewStdevProcessor(StdevOptions{Frequency: time.Hour, Window: 0})
	assert.ErrorIs(t, err, calculator.ErrInvalidWindow)

	_, err = NewStdevProcessor(StdevOptions{Frequency: time.Hour, Window: 5, MinPeriods: 6})
	assert.ErrorIs(t, err, calculator.ErrInvalidWindow)
}
