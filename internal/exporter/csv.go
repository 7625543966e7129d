package exporter

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/model"
)

const (
	DefaultPricedFile = "priced_rows.csv"
	DefaultStatFile   = "stat_rows.csv"
)

// CSVExporter writes each table to its own CSV file under a directory.
type CSVExporter struct {
	dir        string
	pricedFile string
	statFile   string
}

// NewCSVExporter creates a CSVExporter. Empty file names fall back to the defaults.
func NewCSVExporter(dir, pricedFile, statFile string) *CSVExporter {
	if pricedFile == "" {
		pricedFile = DefaultPricedFile
	}
	if statFile == "" {
		statFile = DefaultStatFile
	}
	return &CSVExporter{dir: dir, pricedFile: pricedFile, statFile: statFile}
}

func (e *CSVExporter) ExportPriced(ctx context.Context, rows []model.PricedRow) (string, error) {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = PricedRecord(r)
	}
	return e.write(ctx, e.pricedFile, PricedHeader, records)
}

func (e *CSVExporter) ExportStats(ctx context.Context, rows []model.StatRow) (string, error) {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = StatRecord(r)
	}
	return e.write(ctx, e.statFile, StatHeader, records)
}

// write replaces the target atomically with a temp file rename.
func (e *CSVExporter) write(ctx context.Context, name string, header []string, records [][]string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return "", err
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush buffer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	log.Infof("Saved %d rows to %s", len(records), path)
	return path, nil
}
