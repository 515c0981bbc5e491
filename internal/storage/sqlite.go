package storage

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	suite TEXT NOT NULL,
	ok INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	warned INTEGER NOT NULL,
	findings TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX idx_runs_started_at ON runs(started_at);
CREATE INDEX idx_runs_suite ON runs(suite, started_at);
`

// migrations holds post-v1 schema steps, applied in order.
var migrations = []struct {
	version int
	sql     string
}{}

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// NewSQLiteStore opens the history database with separate read and write
// pools. The write pool holds a single connection; watch mode reads
// concurrently from the read pool.
func NewSQLiteStore(path string, maxReadConns int) (*SQLiteStore, error) {
	if maxReadConns <= 0 {
		maxReadConns = runtime.NumCPU()
	}

	writeDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	if err := runMigrations(writeDB); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	readDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("open read db: %w", err)
	}
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)

	return &SQLiteStore{readDB: readDB, writeDB: writeDB}, nil
}

func runMigrations(db *sql.DB) error {
	var hasSchemaTbl int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&hasSchemaTbl); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if hasSchemaTbl == 0 {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply base schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		return nil
	}

	var currentVersion int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration v%d begin: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d version update: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration v%d commit: %w", m.version, err)
		}
		currentVersion = m.version
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	s.readDB.Close()
	s.writeDB.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.writeDB.Close()
}

// timeFormat is the format used for storing timestamps in SQLite.
const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) InsertRun(ctx context.Context, r *Run) error {
	findings := r.Findings
	if len(findings) == 0 {
		findings = []byte("[]")
	}
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO runs (started_at, suite, ok, passed, failed, warned, findings)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(r.StartedAt), r.Suite, boolToInt(r.OK), r.Passed, r.Failed, r.Warned, string(findings))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, suiteName string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, started_at, suite, ok, passed, failed, warned, findings FROM runs`
	args := []any{}
	if suiteName != "" {
		query += ` WHERE suite = ?`
		args = append(args, suiteName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, started_at, suite, ok, passed, failed, warned, findings
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

func (s *SQLiteStore) PurgeOldRuns(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var startedAt, findings string
	var ok int
	if err := row.Scan(&r.ID, &startedAt, &r.Suite, &ok, &r.Passed, &r.Failed, &r.Warned, &findings); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = parseTime(startedAt)
	r.OK = ok == 1
	r.Findings = []byte(findings)
	return &r, nil
}
