package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertRun records the start of a discovery run and returns its ID.
func (db *DB) InsertRun(sourceName string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.conn.Exec(
		"INSERT INTO discovery_runs (id, source_name, started_at) VALUES (?, ?, ?)",
		id, sourceName, now.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters and report for a run.
func (db *DB) FinishRun(run *DiscoveryRun) error {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		UPDATE discovery_runs
		SET finished_at = ?, timed_out = ?, requests = ?, classified = ?,
		    dropped = ?, duplicates = ?, created = ?, updated = ?,
		    failed_upserts = ?, strategy_failures = ?, report_markdown = ?
		WHERE id = ?`,
		now.Format(time.RFC3339), boolToInt(run.TimedOut),
		run.Requests, run.Classified, run.Dropped, run.Duplicates,
		run.Created, run.Updated, run.FailedUpserts, run.StrategyFailures,
		run.ReportMarkdown, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.ID, err)
	}
	run.FinishedAt = &now
	return nil
}

// GetRun returns one run by ID.
func (db *DB) GetRun(id string) (*DiscoveryRun, error) {
	row := db.conn.QueryRow(selectRun+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]DiscoveryRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(selectRun+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []DiscoveryRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetStats summarizes the catalog for the status pages.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.conn.QueryRow("SELECT COUNT(*) FROM series_metadata").Scan(&stats.TotalSeries)
	if err != nil {
		return nil, fmt.Errorf("counting series: %w", err)
	}
	err = db.conn.QueryRow("SELECT COUNT(*) FROM data_sources").Scan(&stats.TotalSources)
	if err != nil {
		return nil, fmt.Errorf("counting sources: %w", err)
	}
	err = db.conn.QueryRow("SELECT COUNT(*) FROM discovery_runs").Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	stats.SeriesBySource, err = db.CountSeriesBySource()
	if err != nil {
		return nil, err
	}

	var last sql.NullString
	err = db.conn.QueryRow("SELECT MAX(started_at) FROM discovery_runs").Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last run time: %w", err)
	}
	if last.Valid {
		t, err := time.Parse(time.RFC3339, last.String)
		if err == nil {
			stats.LastRunAt = &t
		}
	}

	return stats, nil
}

const selectRun = `
	SELECT id, source_name, started_at, finished_at, timed_out, requests,
	       classified, dropped, duplicates, created, updated, failed_upserts,
	       strategy_failures, report_markdown
	FROM discovery_runs`

func scanRun(row rowScanner) (*DiscoveryRun, error) {
	var run DiscoveryRun
	var startedAt string
	var finishedAt *string
	var timedOut int
	err := row.Scan(
		&run.ID, &run.SourceName, &startedAt, &finishedAt, &timedOut,
		&run.Requests, &run.Classified, &run.Dropped, &run.Duplicates,
		&run.Created, &run.Updated, &run.FailedUpserts,
		&run.StrategyFailures, &run.ReportMarkdown,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt != nil {
		t, err := time.Parse(time.RFC3339, *finishedAt)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	run.TimedOut = timedOut != 0
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
