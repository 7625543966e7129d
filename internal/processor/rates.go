// Package processor runs the rates and stdev pipelines over whole input tables.
package processor

import (
	"context"
	"fmt"
	"time"

	"MarketSeries/internal/model"
	"MarketSeries/internal/rates"
)

// RatesOptions configures the rates pipeline. AllowIdenticalDuplicates applies to spot rates only.
type RatesOptions struct {
	Tolerance                time.Duration
	Workers                  int
	AllowIdenticalDuplicates bool
}

// RatesInput holds the three tables consumed by the rates pipeline.
type RatesInput struct {
	Prices    []model.PriceObservation
	SpotRates []model.SpotRateObservation
	Rules     []model.ConversionRule
}

// RatesProcessor attaches as-of spot rates and conversion rules to prices and computes final prices.
type RatesProcessor struct {
	joiner *rates.Joiner
	opts   RatesOptions
}

// NewRatesProcessor validates opts and creates a RatesProcessor.
func NewRatesProcessor(opts RatesOptions) (*RatesProcessor, error) {
	j, err := rates.NewJoiner(opts.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("rates processor: %w", err)
	}
	return &RatesProcessor{joiner: j, opts: opts}, nil
}

// Options returns the configured options.
func (p *RatesProcessor) Options() RatesOptions { return p.opts }

// Process returns exactly one priced row per price observation, grouped by instrument
// (ascending) and ordered by timestamp within an instrument.
func (p *RatesProcessor) Process(ctx context.Context, in RatesInput) ([]model.PricedRow, error) {
	prices, err := ValidatePrices(in.Prices)
	if err != nil {
		return nil, err
	}
	spots, err := ValidateSpotRates(in.SpotRates, p.opts.AllowIdenticalDuplicates)
	if err != nil {
		return nil, err
	}
	if err := ValidateRules(in.Rules); err != nil {
		return nil, err
	}
	book, err := rates.NewRuleBook(in.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w: conversion_rules: %w", ErrMalformedInput, err)
	}

	keys, priceGroups := model.Partition(prices, func(r model.PriceObservation) string { return r.InstrumentKey })
	_, spotGroups := model.Partition(spots, func(r model.SpotRateObservation) string { return r.InstrumentKey })

	return fanOut(ctx, p.opts.Workers, keys, priceGroups, func(key string, rows []model.PriceObservation) ([]model.PricedRow, error) {
		joined := p.joiner.JoinKey(rows, spotGroups[key])
		out := make([]model.PricedRow, len(joined))
		for i, j := range joined {
			out[i] = rates.Price(book.Attach(j))
		}
		return out, nil
	})
}
