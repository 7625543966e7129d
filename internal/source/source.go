// Package source loads the pipeline input tables.
package source

import (
	"context"

	"MarketSeries/internal/model"
)

// Loader defines the interface for loading input tables.
type Loader interface {
	LoadPrices(ctx context.Context) ([]model.PriceObservation, error)
	LoadSpotRates(ctx context.Context) ([]model.SpotRateObservation, error)
	LoadConversionRules(ctx context.Context) ([]model.ConversionRule, error)
	LoadSnapshots(ctx context.Context) ([]model.SnapshotRow, error)
	Name() string
}

// MockLoader returns fixed tables for development and testing.
type MockLoader struct {
	Prices    []model.PriceObservation
	SpotRates []model.SpotRateObservation
	Rules     []model.ConversionRule
	Snapshots []model.SnapshotRow
	Err       error
}

func (m *MockLoader) Name() string { return "mock" }

func (m *MockLoader) LoadPrices(context.Context) ([]model.PriceObservation, error) {
	return m.Prices, m.Err
}

func (m *MockLoader) LoadSpotRates(context.Context) ([]model.SpotRateObservation, error) {
	return m.SpotRates, m.Err
}

func (m *MockLoader) LoadConversionRules(context.Context) ([]model.ConversionRule, error) {
	return m.Rules, m.Err
}

func (m *MockLoader) LoadSnapshots(context.Context) ([]model.SnapshotRow, error) {
	return m.Snapshots, m.Err
}
