package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	station_id  TEXT NOT NULL,
	finished_at INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_station_finished ON runs(station_id, finished_at);
`

// SQLiteStore persists runs so history survives restarts of the server.
// Retention follows the same rules as MemoryStore.
type SQLiteStore struct {
	db *sql.DB

	maxHistory int
	maxAge     time.Duration
	now        func() time.Time
}

// OpenSQLite opens (creating if needed) the run ledger at path. A path of
// ":memory:" gives a private in-memory database. Zero limits are unlimited.
func OpenSQLite(path string, maxHistory int, maxAge time.Duration) (*SQLiteStore, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return &SQLiteStore{
		db:         db,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a run and prunes the station's history in one transaction.
func (s *SQLiteStore) SaveRun(run smet.RunResult) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	station := run.Station.ID
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO runs(id, station_id, finished_at, payload) VALUES(?,?,?,?)`,
		run.ID, station, run.FinishedAt.UnixNano(), string(payload),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if s.maxHistory > 0 {
		if _, err := tx.Exec(
			`DELETE FROM runs WHERE station_id = ? AND id NOT IN (
				SELECT id FROM runs WHERE station_id = ? ORDER BY finished_at DESC LIMIT ?)`,
			station, station, s.maxHistory,
		); err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
	}

	// The newest run is always kept, however old.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge).UnixNano()
		if _, err := tx.Exec(
			`DELETE FROM runs WHERE station_id = ? AND finished_at < ? AND id <> (
				SELECT id FROM runs WHERE station_id = ? ORDER BY finished_at DESC LIMIT 1)`,
			station, cutoff, station,
		); err != nil {
			return fmt.Errorf("prune by age: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetLatest(stationID string) (smet.RunResult, error) {
	row := s.db.QueryRow(
		`SELECT payload FROM runs WHERE station_id = ? ORDER BY finished_at DESC LIMIT 1`,
		stationID,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return smet.RunResult{}, ErrNotFound
		}
		return smet.RunResult{}, err
	}

	var run smet.RunResult
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return smet.RunResult{}, err
	}
	return run, nil
}

func (s *SQLiteStore) GetRange(stationID string, from, to time.Time) ([]smet.RunResult, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM runs WHERE station_id = ? AND finished_at BETWEEN ? AND ? ORDER BY finished_at`,
		stationID, from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []smet.RunResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var run smet.RunResult
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
