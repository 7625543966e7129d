package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"MarketSeries/internal/model"
)

const (
	PricedSheet = "priced_rows"
	StatSheet   = "stat_rows"
)

// XLSXExporter keeps both tables as sheets of a single workbook. Exporting one table
// replaces its sheet and leaves the other untouched.
type XLSXExporter struct {
	path string
}

// NewXLSXExporter creates an XLSXExporter writing the workbook at path.
func NewXLSXExporter(path string) *XLSXExporter {
	return &XLSXExporter{path: path}
}

func (e *XLSXExporter) ExportPriced(ctx context.Context, rows []model.PricedRow) (string, error) {
	return e.writeSheet(ctx, PricedSheet, PricedHeader, len(rows), func(i int) []any {
		r := rows[i]
		cells := toCells(PricedRecord(r))
		cells[2] = r.Price
		if v, ok := r.FinalPrice.Value(); ok {
			cells[6] = v
		}
		setFloat(cells, 3, r.SpotMidRate)
		setFloat(cells, 5, r.ConversionFactor)
		return cells
	})
}

func (e *XLSXExporter) ExportStats(ctx context.Context, rows []model.StatRow) (string, error) {
	return e.writeSheet(ctx, StatSheet, StatHeader, len(rows), func(i int) []any {
		r := rows[i]
		cells := toCells(StatRecord(r))
		setFloat(cells, 2, r.BidStd)
		setFloat(cells, 3, r.MidStd)
		setFloat(cells, 4, r.AskStd)
		return cells
	})
}

func toCells(rec []string) []any {
	cells := make([]any, len(rec))
	for i, s := range rec {
		cells[i] = s
	}
	return cells
}

// setFloat stores present values as numbers so spreadsheets can compute on them.
func setFloat(cells []any, i int, f model.OptionalFloat) {
	if v, ok := f.Get(); ok {
		cells[i] = v
	}
}

func (e *XLSXExporter) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(e.path); err == nil {
		f, err := excelize.OpenFile(e.path)
		if err != nil {
			return nil, false, fmt.Errorf("open workbook: %w", err)
		}
		return f, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("stat workbook: %w", err)
	}
	return excelize.NewFile(), true, nil
}

// writeSheet fills a staging sheet and swaps it in under the final name.
func (e *XLSXExporter) writeSheet(ctx context.Context, sheet string, header []string, n int, row func(int) []any) (string, error) {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	f, created, err := e.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	staging := sheet + "~"
	if _, err := f.NewSheet(staging); err != nil {
		return "", fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(staging, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		cells := row(i)
		if err := f.SetSheetRow(staging, cell, &cells); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	stale := sheet
	if created {
		stale = "Sheet1"
	}
	if idx, err := f.GetSheetIndex(stale); err == nil && idx >= 0 {
		if err := f.DeleteSheet(stale); err != nil {
			return "", fmt.Errorf("drop sheet %s: %w", stale, err)
		}
	}
	if err := f.SetSheetName(staging, sheet); err != nil {
		return "", fmt.Errorf("rename sheet %s: %w", sheet, err)
	}
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(e.path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	log.Infof("Saved %d rows to %s sheet %s", n, e.path, sheet)
	return e.path, nil
}
