package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// SQLiteStore is a SQLite implementation of the core.JobStore port
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite job store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS job_records (
			id TEXT PRIMARY KEY,
			company TEXT,
			title TEXT,
			url TEXT,
			status TEXT,
			priority TEXT,
			notes TEXT,
			source_email_id TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on url for the match-by-URL lookup path
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_records_url ON job_records(url)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// CreateJob stores a new record and returns its identifier
func (s *SQLiteStore) CreateJob(ctx context.Context, job *core.JobRecord) (string, error) {
	id, err := newJobID()
	if err != nil {
		return "", err
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_records (id, company, title, url, status, priority, notes, source_email_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, job.Company, job.Title, job.URL, job.Status, job.Priority, job.Notes, job.SourceEmailID,
		createdAt.Format(time.RFC3339), createdAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert job record: %w", err)
	}

	return id, nil
}

// FindJob matches by URL first, then by company+title
func (s *SQLiteStore) FindJob(ctx context.Context, url, company, title string) (string, error) {
	var id string

	if url != "" {
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM job_records WHERE url = ? COLLATE NOCASE LIMIT 1
		`, url).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to query job records by url: %w", err)
		}
	}

	if company != "" && title != "" {
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM job_records
			WHERE company = ? COLLATE NOCASE AND title = ? COLLATE NOCASE
			LIMIT 1
		`, company, title).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to query job records by company and title: %w", err)
		}
	}

	return "", nil
}

// UpdateJobStatus transitions a record's status, optionally appending a note
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID, status, note string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_records
		SET status = ?,
		    notes = CASE WHEN ? = '' THEN notes
		                 WHEN notes = '' OR notes IS NULL THEN ?
		                 ELSE notes || char(10) || ? END,
		    updated_at = ?
		WHERE id = ?
	`, status, note, note, note, time.Now().Format(time.RFC3339), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job record: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected on job update", zap.Error(err))
		return nil
	}
	if rows == 0 {
		return fmt.Errorf("%w: job %s", core.ErrNotFound, jobID)
	}
	return nil
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
