package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"MarketSeries/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			pipeline    TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			input_rows  INTEGER,
			output_rows INTEGER,
			diagnostics INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS priced_rows (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			timestamp         INTEGER NOT NULL,
			instrument_key    TEXT NOT NULL,
			price             REAL NOT NULL,
			spot_mid_rate     REAL,
			convert_price     INTEGER,
			conversion_factor REAL,
			final_price       REAL,
			missing_fields    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_priced_run ON priced_rows(run_id, instrument_key, timestamp)`,

		`CREATE TABLE IF NOT EXISTS stat_rows (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			snap_time      INTEGER NOT NULL,
			instrument_key TEXT NOT NULL,
			bid_std        REAL,
			mid_std        REAL,
			ask_std        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stat_run ON stat_rows(run_id, instrument_key, snap_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullFloat(f model.OptionalFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Value, Valid: f.Valid}
}

func nullBool(b model.OptionalBool) sql.NullBool {
	return sql.NullBool{Bool: b.Value, Valid: b.Valid}
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, pipeline, started_at, finished_at, input_rows, output_rows, diagnostics)
		VALUES (?,?,?,?,?,?,?)`,
		run.RunID, string(run.Pipeline), run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.InputRows, run.OutputRows, run.Diagnostics,
	)
	return err
}

// insertBatch runs one prepared insert per row inside a single transaction.
func (r *SQLiteRecorder) insertBatch(ctx context.Context, query string, n int, args func(int) []any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordPriced(ctx context.Context, runID string, rows []model.PricedRow) error {
	return r.insertBatch(ctx, `INSERT INTO priced_rows
		(run_id, timestamp, instrument_key, price, spot_mid_rate, convert_price, conversion_factor, final_price, missing_fields)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		len(rows), func(i int) []any {
			row := rows[i]
			var final sql.NullFloat64
			var missing sql.NullString
			if v, ok := row.FinalPrice.Value(); ok {
				final = sql.NullFloat64{Float64: v, Valid: true}
			} else {
				names := make([]string, 0, len(model.ConversionFields))
				for _, f := range row.FinalPrice.Missing() {
					names = append(names, string(f))
				}
				missing = sql.NullString{String: strings.Join(names, ","), Valid: true}
			}
			return []any{
				runID, row.Timestamp.UnixNano(), row.InstrumentKey, row.Price,
				nullFloat(row.SpotMidRate), nullBool(row.ConvertPrice), nullFloat(row.ConversionFactor),
				final, missing,
			}
		})
}

func (r *SQLiteRecorder) RecordStats(ctx context.Context, runID string, rows []model.StatRow) error {
	return r.insertBatch(ctx, `INSERT INTO stat_rows
		(run_id, snap_time, instrument_key, bid_std, mid_std, ask_std)
		VALUES (?,?,?,?,?,?)`,
		len(rows), func(i int) []any {
			row := rows[i]
			return []any{
				runID, row.SnapTime.UnixNano(), row.InstrumentKey,
				nullFloat(row.BidStd), nullFloat(row.MidStd), nullFloat(row.AskStd),
			}
		})
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, pipeline, started_at, finished_at, input_rows, output_rows, diagnostics
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var s model.RunSummary
		var pipeline string
		var started, finished int64
		if err := rows.Scan(&s.RunID, &pipeline, &started, &finished, &s.InputRows, &s.OutputRows, &s.Diagnostics); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Pipeline = model.Pipeline(pipeline)
		s.StartedAt = time.Unix(0, started).UTC()
		s.FinishedAt = time.Unix(0, finished).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
