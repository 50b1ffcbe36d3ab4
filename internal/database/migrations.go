package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS data_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    base_url TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS series_metadata (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL REFERENCES data_sources(id),
    external_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    unit TEXT,
    frequency TEXT NOT NULL DEFAULT 'unknown',
    geography_scope TEXT,
    topic_hint TEXT,
    first_seen_at TEXT NOT NULL DEFAULT (datetime('now')),
    last_seen_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (source_id, external_id)
);

CREATE TABLE IF NOT EXISTS discovery_runs (
    id TEXT PRIMARY KEY,
    source_name TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    timed_out INTEGER DEFAULT 0,
    requests INTEGER DEFAULT 0,
    classified INTEGER DEFAULT 0,
    dropped INTEGER DEFAULT 0,
    duplicates INTEGER DEFAULT 0,
    created INTEGER DEFAULT 0,
    updated INTEGER DEFAULT 0,
    failed_upserts INTEGER DEFAULT 0,
    strategy_failures INTEGER DEFAULT 0,
    report_markdown TEXT
);

CREATE INDEX IF NOT EXISTS idx_series_source ON series_metadata(source_id);
CREATE INDEX IF NOT EXISTS idx_series_external ON series_metadata(external_id);
CREATE INDEX IF NOT EXISTS idx_runs_source ON discovery_runs(source_name);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
