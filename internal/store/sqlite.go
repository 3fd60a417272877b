package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/errand/internal/model"

	_ "modernc.org/sqlite"
)

const createJobRecordsTable = `
CREATE TABLE IF NOT EXISTS job_records (
    request_id TEXT PRIMARY KEY,
    result     TEXT NOT NULL,
    status     TEXT NOT NULL,
    timestamp  DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Durable = (*SQLiteStore)(nil)

// SQLiteStore implements Durable using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createJobRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create job_records table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Write inserts or replaces the record for rec.RequestID in one statement.
func (s *SQLiteStore) Write(ctx context.Context, rec *model.JobRecord) error {
	if rec == nil {
		return errors.New("job record is nil")
	}
	if err := checkID(rec.RequestID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_records (request_id, result, status, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			result = excluded.result,
			status = excluded.status,
			timestamp = excluded.timestamp`,
		rec.RequestID, rec.Result, rec.Status, rec.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert job record: %w", err)
	}
	return nil
}

// Read retrieves the record for requestID.
func (s *SQLiteStore) Read(ctx context.Context, requestID string) (*model.JobRecord, error) {
	if err := checkID(requestID); err != nil {
		return nil, err
	}

	rec := &model.JobRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, result, status, timestamp
		FROM job_records WHERE request_id = ?`, requestID,
	).Scan(&rec.RequestID, &rec.Result, &rec.Status, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job record: %w", err)
	}
	return rec, nil
}
