package model

import "time"

// PriceObservation is a single captured price for an instrument.
type PriceObservation struct {
	Timestamp     time.Time
	InstrumentKey string
	Price         float64
}

// SpotRateObservation is a single captured spot mid rate for an instrument.
type SpotRateObservation struct {
	Timestamp     time.Time
	InstrumentKey string
	SpotMidRate   float64
}

// ConversionRule is the reference data that decides how an instrument's price is converted.
type ConversionRule struct {
	InstrumentKey    string
	ConvertPrice     OptionalBool
	ConversionFactor OptionalFloat
}

// JoinedRow is a price observation with its as-of spot rate and rule fields attached.
// SpotMidRate, when present, was observed at or before Timestamp within the join tolerance.
type JoinedRow struct {
	Timestamp        time.Time
	InstrumentKey    string
	Price            float64
	SpotMidRate      OptionalFloat
	ConvertPrice     OptionalBool
	ConversionFactor OptionalFloat
}

// PricedRow is the terminal row of the rates pipeline.
type PricedRow struct {
	JoinedRow
	FinalPrice FinalPrice
}
