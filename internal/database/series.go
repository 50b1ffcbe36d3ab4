package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome reports what an upsert did.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
)

func (o Outcome) String() string {
	if o == OutcomeCreated {
		return "created"
	}
	return "updated"
}

// UpsertSeries inserts the series if no row exists for (source_id,
// external_id), otherwise refreshes the existing row. Non-empty incoming
// fields overwrite stored values; empty ones leave the stored value alone.
// last_seen_at is bumped either way, so re-running discovery is idempotent.
func (db *DB) UpsertSeries(s *Series) (Outcome, error) {
	existing, err := db.getSeriesByExternalID(s.SourceID, s.ExternalID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return OutcomeUpdated, fmt.Errorf("looking up series %q: %w", s.ExternalID, err)
	}

	now := time.Now().UTC()

	if existing == nil {
		if s.Frequency == "" {
			s.Frequency = "unknown"
		}
		res, err := db.conn.Exec(`
			INSERT INTO series_metadata
				(source_id, external_id, title, description, unit, frequency,
				 geography_scope, topic_hint, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SourceID, s.ExternalID, s.Title, s.Description, s.Unit, s.Frequency,
			s.GeographyScope, s.TopicHint,
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return OutcomeUpdated, fmt.Errorf("inserting series %q: %w", s.ExternalID, err)
		}
		s.ID, _ = res.LastInsertId()
		s.FirstSeenAt = now
		s.LastSeenAt = now
		return OutcomeCreated, nil
	}

	merged := *existing
	if s.Title != "" {
		merged.Title = s.Title
	}
	if s.Description != nil && *s.Description != "" {
		merged.Description = s.Description
	}
	if s.Unit != nil && *s.Unit != "" {
		merged.Unit = s.Unit
	}
	if s.Frequency != "" && s.Frequency != "unknown" {
		merged.Frequency = s.Frequency
	}
	if s.GeographyScope != nil && *s.GeographyScope != "" {
		merged.GeographyScope = s.GeographyScope
	}
	if s.TopicHint != nil && *s.TopicHint != "" {
		merged.TopicHint = s.TopicHint
	}
	merged.LastSeenAt = now

	_, err = db.conn.Exec(`
		UPDATE series_metadata
		SET title = ?, description = ?, unit = ?, frequency = ?,
		    geography_scope = ?, topic_hint = ?, last_seen_at = ?
		WHERE id = ?`,
		merged.Title, merged.Description, merged.Unit, merged.Frequency,
		merged.GeographyScope, merged.TopicHint,
		now.Format(time.RFC3339), merged.ID,
	)
	if err != nil {
		return OutcomeUpdated, fmt.Errorf("updating series %q: %w", s.ExternalID, err)
	}
	*s = merged
	return OutcomeUpdated, nil
}

func (db *DB) getSeriesByExternalID(sourceID int64, externalID string) (*Series, error) {
	row := db.conn.QueryRow(
		selectSeries+" WHERE source_id = ? AND external_id = ?",
		sourceID, externalID,
	)
	return scanSeries(row)
}

// GetSeries returns one series by primary key.
func (db *DB) GetSeries(id int64) (*Series, error) {
	row := db.conn.QueryRow(selectSeries+" WHERE id = ?", id)
	s, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("series %d not found", id)
	}
	return s, err
}

// ListSeries returns series for a source ordered by external ID,
// limited to limit rows (0 means no limit).
func (db *DB) ListSeries(sourceID int64, limit int) ([]Series, error) {
	query := selectSeries + " WHERE source_id = ? ORDER BY external_id"
	args := []any{sourceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CountSeriesBySource returns series counts keyed by source name.
func (db *DB) CountSeriesBySource() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT ds.name, COUNT(sm.id)
		FROM data_sources ds
		LEFT JOIN series_metadata sm ON sm.source_id = ds.id
		GROUP BY ds.id`)
	if err != nil {
		return nil, fmt.Errorf("counting series: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

const selectSeries = `
	SELECT id, source_id, external_id, title, description, unit, frequency,
	       geography_scope, topic_hint, first_seen_at, last_seen_at
	FROM series_metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*Series, error) {
	var s Series
	var firstSeen, lastSeen string
	err := row.Scan(
		&s.ID, &s.SourceID, &s.ExternalID, &s.Title, &s.Description, &s.Unit,
		&s.Frequency, &s.GeographyScope, &s.TopicHint, &firstSeen, &lastSeen,
	)
	if err != nil {
		return nil, err
	}
	s.FirstSeenAt, _ = time.Parse(time.RFC3339, firstSeen)
	s.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeen)
	return &s, nil
}
