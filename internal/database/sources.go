package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetOrCreateSource returns the data source with the given name,
// inserting it first if it does not exist.
func (db *DB) GetOrCreateSource(name, baseURL string) (*DataSource, error) {
	src, err := db.getSourceByName(name)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := db.conn.Exec(
		"INSERT INTO data_sources (name, base_url, created_at) VALUES (?, ?, ?)",
		name, baseURL, now.Format(time.RFC3339),
	)
	if err != nil {
		// Another writer may have inserted concurrently.
		if src, getErr := db.getSourceByName(name); getErr == nil {
			return src, nil
		}
		return nil, fmt.Errorf("inserting source %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("source insert id: %w", err)
	}
	return &DataSource{ID: id, Name: name, BaseURL: baseURL, CreatedAt: now}, nil
}

func (db *DB) getSourceByName(name string) (*DataSource, error) {
	var src DataSource
	var createdAt string
	err := db.conn.QueryRow(
		"SELECT id, name, base_url, created_at FROM data_sources WHERE name = ?",
		name,
	).Scan(&src.ID, &src.Name, &src.BaseURL, &createdAt)
	if err != nil {
		return nil, err
	}
	src.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &src, nil
}

// ListSources returns all data sources ordered by name.
func (db *DB) ListSources() ([]DataSource, error) {
	rows, err := db.conn.Query("SELECT id, name, base_url, created_at FROM data_sources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []DataSource
	for rows.Next() {
		var src DataSource
		var createdAt string
		if err := rows.Scan(&src.ID, &src.Name, &src.BaseURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
