package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists processing status in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("status: open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initDB creates the processing_status table and its indexes.
func (s *SQLiteStore) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS processing_status (
			base_filename     TEXT PRIMARY KEY,
			run_id            TEXT NOT NULL,
			state             TEXT NOT NULL,
			duration_sec      REAL NOT NULL DEFAULT 0,
			segment_count     INTEGER NOT NULL DEFAULT 0,
			transcribed_count INTEGER NOT NULL DEFAULT 0,
			error             TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMP NOT NULL,
			updated_at        TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("status: create table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_processing_status_state ON processing_status(state)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_status_run_id ON processing_status(run_id)`,
	}
	for _, stmt := range indexes {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("status: create index: %w", err)
		}
	}
	return nil
}

// Upsert writes the record, inserting or replacing by base filename.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_status
			(base_filename, run_id, state, duration_sec, segment_count, transcribed_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(base_filename) DO UPDATE SET
			run_id = excluded.run_id,
			state = excluded.state,
			duration_sec = excluded.duration_sec,
			segment_count = excluded.segment_count,
			transcribed_count = excluded.transcribed_count,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		rec.BaseFilename,
		rec.RunID,
		string(rec.State),
		rec.DurationSec,
		rec.SegmentCount,
		rec.TranscribedCount,
		rec.Error,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("status: upsert record: %w", err)
	}
	return nil
}

// Get retrieves a record by base filename.
func (s *SQLiteStore) Get(ctx context.Context, baseFilename string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT base_filename, run_id, state, duration_sec, segment_count, transcribed_count, error, created_at, updated_at
		FROM processing_status WHERE base_filename = ?`, baseFilename)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, baseFilename)
	}
	if err != nil {
		return nil, fmt.Errorf("status: get record: %w", err)
	}
	return rec, nil
}

// List returns all records ordered by base filename.
func (s *SQLiteStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base_filename, run_id, state, duration_sec, segment_count, transcribed_count, error, created_at, updated_at
		FROM processing_status ORDER BY base_filename`)
	if err != nil {
		return nil, fmt.Errorf("status: list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("status: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status: iterate records: %w", err)
	}
	return records, nil
}

// Summarize aggregates the store into dataset statistics.
func (s *SQLiteStore) Summarize(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(duration_sec), 0),
			COALESCE(SUM(segment_count), 0),
			COALESCE(SUM(transcribed_count), 0)
		FROM processing_status`,
		string(StateCompleted), string(StateFailed))

	var sum Summary
	if err := row.Scan(&sum.Total, &sum.Completed, &sum.Failed,
		&sum.TotalDurationSec, &sum.TotalSegments, &sum.TotalTranscribed); err != nil {
		return Summary{}, fmt.Errorf("status: summarize: %w", err)
	}
	return sum, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var state, createdAt, updatedAt string
	if err := sc.Scan(&rec.BaseFilename, &rec.RunID, &state, &rec.DurationSec,
		&rec.SegmentCount, &rec.TranscribedCount, &rec.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.State = State(state)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &rec, nil
}
