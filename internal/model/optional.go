// Package model defines the immutable records that flow through the rates and stdev pipelines.
package model

import "math"

// OptionalFloat is a float64 that may be absent. Absent is distinct from zero.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// FloatOf returns a present OptionalFloat.
func FloatOf(v float64) OptionalFloat { return OptionalFloat{Value: v, Valid: true} }

// NoFloat returns an absent OptionalFloat.
func NoFloat() OptionalFloat { return OptionalFloat{} }

// FloatFromNaN maps NaN to absent and any other value to present.
func FloatFromNaN(v float64) OptionalFloat {
	if math.IsNaN(v) {
		return OptionalFloat{}
	}
	return FloatOf(v)
}

// Get returns the value and whether it is present.
func (f OptionalFloat) Get() (float64, bool) { return f.Value, f.Valid }

// OptionalBool is a bool that may be absent. Absent is distinct from false.
type OptionalBool struct {
	Value bool
	Valid bool
}

// BoolOf returns a present OptionalBool.
func BoolOf(v bool) OptionalBool { return OptionalBool{Value: v, Valid: true} }

// NoBool returns an absent OptionalBool.
func NoBool() OptionalBool { return OptionalBool{} }

// Get returns the value and whether it is present.
func (b OptionalBool) Get() (bool, bool) { return b.Value, b.Valid }
