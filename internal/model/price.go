package model

// Field names a conversion input that can be missing from a row.
type Field string

const (
	FieldConvertPrice     Field = "convert_price"
	FieldConversionFactor Field = "conversion_factor"
	FieldSpotMidRate      Field = "spot_mid_rate"
)

// ConversionFields lists the conversion inputs in diagnostic order.
var ConversionFields = []Field{FieldConvertPrice, FieldConversionFactor, FieldSpotMidRate}

// FinalPrice is either a numeric price or a diagnostic naming the missing inputs.
type FinalPrice struct {
	value   float64
	missing []Field
}

// Numeric returns a FinalPrice holding v.
func Numeric(v float64) FinalPrice { return FinalPrice{value: v} }

// Diagnostic returns a FinalPrice that could not be computed because fields were missing.
// At least one field must be given.
func Diagnostic(fields ...Field) FinalPrice {
	missing := make([]Field, len(fields))
	copy(missing, fields)
	return FinalPrice{missing: missing}
}

// IsNumeric reports whether the price was computed.
func (p FinalPrice) IsNumeric() bool { return len(p.missing) == 0 }

// Value returns the numeric price and true, or 0 and false for a diagnostic.
func (p FinalPrice) Value() (float64, bool) {
	if !p.IsNumeric() {
		return 0, false
	}
	return p.value, true
}

// Missing returns the missing fields of a diagnostic, in diagnostic order.
func (p FinalPrice) Missing() []Field {
	out := make([]Field, len(p.missing))
	copy(out, p.missing)
	return out
}
