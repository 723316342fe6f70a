// Package eventlog records completed reconciliations in a local sqlite
// database. The log is diagnostic only; camera settings themselves are never
// persisted here.
package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle backing the event log.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the event log at path. Use ":memory:"
// for an ephemeral log.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reconciliations (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			changed           INTEGER,
			clamped           INTEGER,
			duration_ms       DOUBLE,
			geometry          TEXT,
			initializing      BOOLEAN,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating event log schema: %w", err)
	}

	return &DB{db}, nil
}

// Record is one completed reconciliation.
type Record struct {
	ID           int64     `json:"id"`
	Changed      int       `json:"changed"`
	Clamped      int       `json:"clamped"`
	DurationMS   float64   `json:"duration_ms"`
	Geometry     string    `json:"geometry"`
	Initializing bool      `json:"initializing"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecordReconciliation appends a record to the log.
func (db *DB) RecordReconciliation(r Record) error {
	_, err := db.Exec(
		`INSERT INTO reconciliations (changed, clamped, duration_ms, geometry, initializing) VALUES (?, ?, ?, ?, ?)`,
		r.Changed, r.Clamped, r.DurationMS, r.Geometry, r.Initializing,
	)
	if err != nil {
		return fmt.Errorf("recording reconciliation: %w", err)
	}
	return nil
}

// Recent returns the most recent n records, newest first.
func (db *DB) Recent(n int) ([]Record, error) {
	rows, err := db.Query(
		`SELECT id, changed, clamped, duration_ms, geometry, initializing, timestamp
		 FROM reconciliations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying reconciliations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Changed, &r.Clamped, &r.DurationMS, &r.Geometry, &r.Initializing, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning reconciliation row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates reconciliation durations.
type Summary struct {
	Count    int     `json:"count"`
	MeanMS   float64 `json:"mean_ms"`
	StdDevMS float64 `json:"stddev_ms"`
	MaxMS    float64 `json:"max_ms"`
	Clamped  int     `json:"clamped"`
}

// Summarize computes duration statistics over the whole log.
func (db *DB) Summarize() (Summary, error) {
	rows, err := db.Query(`SELECT duration_ms, clamped FROM reconciliations`)
	if err != nil {
		return Summary{}, fmt.Errorf("querying durations: %w", err)
	}
	defer rows.Close()

	var durations []float64
	var clamped int
	for rows.Next() {
		var d float64
		var c int
		if err := rows.Scan(&d, &c); err != nil {
			return Summary{}, fmt.Errorf("scanning duration row: %w", err)
		}
		durations = append(durations, d)
		clamped += c
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	s := Summary{Count: len(durations), Clamped: clamped}
	if len(durations) == 0 {
		return s, nil
	}
	s.MeanMS = stat.Mean(durations, nil)
	if len(durations) > 1 {
		s.StdDevMS = stat.StdDev(durations, nil)
	}
	for _, d := range durations {
		if d > s.MaxMS {
			s.MaxMS = d
		}
	}
	return s, nil
}
