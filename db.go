package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dentalytics/pkg/analytics"
)

// Store keeps one row per successful report run so repeated dashboard loads
// don't re-spend API quota.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshot (
		run_id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		report TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS snapshot_lookup
		ON snapshot (channel, start_date, end_date, fetched_at);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a finished report run.
func (s *Store) Save(rep *Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshot (run_id, channel, start_date, end_date, fetched_at, report)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Channel, rep.Period.StartDate(), rep.Period.EndDate(),
		rep.FetchedAt.UTC().Format(time.RFC3339), string(raw),
	)
	return err
}

// Latest returns the newest stored report for the channel and period, or
// nil when none exists.
func (s *Store) Latest(channel string, p analytics.Period) (*Report, error) {
	row := s.db.QueryRow(
		`SELECT report FROM snapshot
		 WHERE channel = ? AND start_date = ? AND end_date = ?
		 ORDER BY fetched_at DESC LIMIT 1`,
		channel, p.StartDate(), p.EndDate(),
	)

	var raw string
	if err := row.Scan(&raw); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	rep := &Report{}
	if err := json.Unmarshal([]byte(raw), rep); err != nil {
		return nil, fmt.Errorf("decoding stored report: %w", err)
	}
	return rep, nil
}

// Prune drops snapshots older than the cutoff and reports how many went.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM snapshot WHERE fetched_at < ?`,
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
