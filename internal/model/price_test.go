package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPrice_Numeric(t *testing.T) {
	p := Numeric(111.2)
	v, ok := p.Value()
	assert.True(t, ok)
	assert.Equal(t, 111.2, v)
	assert.Empty(t, p.Missing())
}

func TestFinalPrice_Diagnostic(t *testing.T) {
	p := Diagnostic(FieldConversionFactor, FieldSpotMidRate)
	assert.False(t, p.IsNumeric())
	_, ok := p.Value()
	assert.False(t, ok)
	assert.Equal(t, []Field{FieldConversionFactor, FieldSpotMidRate}, p.Missing())

	// Missing returns a copy.
	p.Missing()[0] = FieldConvertPrice
	assert.Equal(t, FieldConversionFactor, p.Missing()[0])
}

func TestOptionalFloat_FromNaN(t *testing.T) {
	assert.False(t, FloatFromNaN(math.NaN()).Valid)
	f := FloatFromNaN(0)
	assert.True(t, f.Valid)
	assert.Equal(t, 0.0, f.Value)
}

func TestGridRow_Observed(t *testing.T) {
	assert.False(t, GridRow{}.Observed())
	assert.True(t, GridRow{Mid: FloatOf(1)}.Observed())
}

func TestPartition_SortedKeysStableGroups(t *testing.T) {
	rows := []PriceObservation{
		{InstrumentKey: "USDJPY", Price: 1},
		{InstrumentKey: "EURUSD", Price: 2},
		{InstrumentKey: "USDJPY", Price: 3},
	}
	keys, groups := Partition(rows, func(r PriceObservation) string { return r.InstrumentKey })
	assert.Equal(t, []string{"EURUSD", "USDJPY"}, keys)
	assert.Len(t, groups["USDJPY"], 2)
	assert.Equal(t, 1.0, groups["USDJPY"][0].Price)
	assert.Equal(t, 3.0, groups["USDJPY"][1].Price)
}
