// Package exporter writes priced rows and stat rows to result files.
package exporter

import (
	"context"
	"errors"

	"MarketSeries/internal/model"
)

// Exporter writes a result table and returns the path it wrote.
type Exporter interface {
	ExportPriced(ctx context.Context, rows []model.PricedRow) (string, error)
	ExportStats(ctx context.Context, rows []model.StatRow) (string, error)
}

// Multi fans a result table out to every exporter in order.
type Multi []Exporter

// ExportPriced writes rows with every exporter. It returns the first exporter's path and
// the joined errors of all that failed.
func (m Multi) ExportPriced(ctx context.Context, rows []model.PricedRow) (string, error) {
	var first string
	var errs []error
	for i, e := range m {
		path, err := e.ExportPriced(ctx, rows)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			first = path
		}
	}
	return first, errors.Join(errs...)
}

// ExportStats writes rows with every exporter, like ExportPriced.
func (m Multi) ExportStats(ctx context.Context, rows []model.StatRow) (string, error) {
	var first string
	var errs []error
	for i, e := range m {
		path, err := e.ExportStats(ctx, rows)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			first = path
		}
	}
	return first, errors.Join(errs...)
}
