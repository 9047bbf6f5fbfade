// Package state persists build history so validation and repair outcomes
// survive across runs.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ValidationRun is one recorded evaluation of the docs tree.
type ValidationRun struct {
	ID        int64
	BuildID   string
	Rule      string
	Passed    bool
	Reason    string
	Timestamp time.Time
}

// RepairRecord is one recorded cross-reference repair or failure.
type RepairRecord struct {
	ID             int64
	BuildID        string
	SourcePath     string
	Destination    string
	NewDestination string
	Status         string
	Timestamp      time.Time
}

// BuildRecord summarizes one pipeline run.
type BuildRecord struct {
	ID        int64
	BuildID   string
	Succeeded bool
	Stages    map[string]string // stage name to outcome
	Timestamp time.Time
}

// Store keeps build history in SQLite.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		stages TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS validation_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		rule TEXT NOT NULL,
		passed INTEGER NOT NULL,
		reason TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS repairs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		destination TEXT NOT NULL,
		new_destination TEXT,
		status TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_validation_build_id ON validation_runs(build_id);
	CREATE INDEX IF NOT EXISTS idx_repairs_build_id ON repairs(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_timestamp ON builds(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild stores the summary of a finished pipeline run.
func (s *Store) RecordBuild(ctx context.Context, buildID string, succeeded bool, stages map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stagesJSON []byte
	if stages != nil {
		var err error
		stagesJSON, err = json.Marshal(stages)
		if err != nil {
			return fmt.Errorf("marshal stage outcomes: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, succeeded, stages, timestamp) VALUES (?, ?, ?, ?)",
		buildID, boolToInt(succeeded), stagesJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// RecordValidation stores one rule outcome.
func (s *Store) RecordValidation(ctx context.Context, buildID, rule string, passed bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO validation_runs (build_id, rule, passed, reason, timestamp) VALUES (?, ?, ?, ?, ?)",
		buildID, rule, boolToInt(passed), reason, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert validation run: %w", err)
	}
	return nil
}

// RecordRepair stores one cross-reference finding.
func (s *Store) RecordRepair(ctx context.Context, buildID, sourcePath, destination, newDestination, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO repairs (build_id, source_path, destination, new_destination, status, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		buildID, sourcePath, destination, newDestination, status, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert repair: %w", err)
	}
	return nil
}

// ValidationsByBuild retrieves all rule outcomes for one build.
func (s *Store) ValidationsByBuild(ctx context.Context, buildID string) ([]ValidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, rule, passed, reason, timestamp FROM validation_runs WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query validation runs: %w", err)
	}
	defer rows.Close()

	var runs []ValidationRun
	for rows.Next() {
		var (
			run    ValidationRun
			passed int
			tsUnix int64
		)
		if err := rows.Scan(&run.ID, &run.BuildID, &run.Rule, &passed, &run.Reason, &tsUnix); err != nil {
			return nil, fmt.Errorf("scan validation run: %w", err)
		}
		run.Passed = passed != 0
		run.Timestamp = time.Unix(tsUnix, 0)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// RepairsByBuild retrieves all cross-reference findings for one build.
func (s *Store) RepairsByBuild(ctx context.Context, buildID string) ([]RepairRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, source_path, destination, new_destination, status, timestamp FROM repairs WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query repairs: %w", err)
	}
	defer rows.Close()

	var records []RepairRecord
	for rows.Next() {
		var (
			rec    RepairRecord
			tsUnix int64
		)
		if err := rows.Scan(&rec.ID, &rec.BuildID, &rec.SourcePath, &rec.Destination, &rec.NewDestination, &rec.Status, &tsUnix); err != nil {
			return nil, fmt.Errorf("scan repair: %w", err)
		}
		rec.Timestamp = time.Unix(tsUnix, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// BuildsInRange retrieves build summaries within a time window.
func (s *Store) BuildsInRange(ctx context.Context, start, end time.Time) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, succeeded, stages, timestamp FROM builds WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []BuildRecord
	for rows.Next() {
		var (
			rec        BuildRecord
			succeeded  int
			stagesJSON []byte
			tsUnix     int64
		)
		if err := rows.Scan(&rec.ID, &rec.BuildID, &succeeded, &stagesJSON, &tsUnix); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		rec.Succeeded = succeeded != 0
		rec.Timestamp = time.Unix(tsUnix, 0)
		if len(stagesJSON) > 0 {
			if err := json.Unmarshal(stagesJSON, &rec.Stages); err != nil {
				return nil, fmt.Errorf("unmarshal stage outcomes: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// LastBuild returns the most recent build summary, or nil when none exist.
func (s *Store) LastBuild(ctx context.Context) (*BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, build_id, succeeded, stages, timestamp FROM builds ORDER BY id DESC LIMIT 1")

	var (
		rec        BuildRecord
		succeeded  int
		stagesJSON []byte
		tsUnix     int64
	)
	err := row.Scan(&rec.ID, &rec.BuildID, &succeeded, &stagesJSON, &tsUnix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan build: %w", err)
	}
	rec.Succeeded = succeeded != 0
	rec.Timestamp = time.Unix(tsUnix, 0)
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &rec.Stages); err != nil {
			return nil, fmt.Errorf("unmarshal stage outcomes: %w", err)
		}
	}
	return &rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
