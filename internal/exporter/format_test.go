package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MarketSeries/internal/model"
)

func TestFormatFinalPrice(t *testing.T) {
	tests := []struct {
		in   model.FinalPrice
		want string
	}{
		{model.Numeric(150), "150"},
		{model.Numeric(111.2), "111.2"},
		{model.Diagnostic(model.FieldSpotMidRate), "missing spot_mid_rate"},
		{model.Diagnostic(model.FieldConvertPrice), "missing convert_price"},
		{model.Diagnostic(model.FieldConversionFactor, model.FieldSpotMidRate), "missing conversion_factor, spot_mid_rate"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFinalPrice(tt.in))
	}
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "", FormatOptionalFloat(model.NoFloat()))
	assert.Equal(t, "0", FormatOptionalFloat(model.FloatOf(0)))
	assert.Equal(t, "", FormatOptionalBool(model.NoBool()))
	assert.Equal(t, "false", FormatOptionalBool(model.BoolOf(false)))
}

func TestFormatTime_UTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "2025-10-16T01:00:00Z", FormatTime(time.Date(2025, 10, 16, 10, 0, 0, 0, tokyo)))
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	s := &model.RunSummary{
		RunID: "abc", Pipeline: model.PipelineRates,
		StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		InputRows: 8, OutputRows: 8, Diagnostics: 4,
	}
	assert.Equal(t, "RATES run abc finished in 1.5s: 8 input rows, 8 output rows, 4 diagnostics", FormatRunSummary(s))

	s.Diagnostics = 0
	assert.Equal(t, "RATES run abc finished in 1.5s: 8 input rows, 8 output rows", FormatRunSummary(s))
}
