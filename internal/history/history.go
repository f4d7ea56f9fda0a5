// Package history keeps a local DuckDB table of past verification runs so
// repeated runs against the same backend can be compared without digging
// through report files.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/sluice/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        VARCHAR NOT NULL,
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP NOT NULL,
	data_stream   VARCHAR NOT NULL,
	log_type      VARCHAR NOT NULL,
	result        VARCHAR NOT NULL,
	outcome       VARCHAR NOT NULL,
	expected      BIGINT NOT NULL,
	observed      BIGINT NOT NULL,
	ticks         INTEGER NOT NULL,
	elapsed_ms    BIGINT NOT NULL
)`

const defaultQueryTimeout = 30 * time.Second

// Store manages the run-history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path. An empty path opens
// an in-memory database.
func Open(path string) (*Store, error) {
	dsn := ""
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one completed run.
func (s *Store) Record(r *report.Report) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, data_stream, log_type,
			result, outcome, expected, observed, ticks, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.FinishedAt, r.DataStream, r.Category,
		r.Result, r.Outcome, r.Expected, r.Observed, r.Ticks,
		r.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// Run is one row of the history table.
type Run struct {
	RunID      string
	StartedAt  time.Time
	DataStream string
	Category   string
	Result     string
	Outcome    string
	Expected   int64
	Observed   int64
	Ticks      int
	Elapsed    time.Duration
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, data_stream, log_type, result, outcome,
			expected, observed, ticks, elapsed_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var elapsedMS int64
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.DataStream, &r.Category,
			&r.Result, &r.Outcome, &r.Expected, &r.Observed, &r.Ticks, &elapsedMS); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
