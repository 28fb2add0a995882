package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// MySQLStore is a MySQL implementation of the core.JobStore port
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL job store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS job_records (
			id VARCHAR(32) PRIMARY KEY,
			company VARCHAR(255),
			title VARCHAR(255),
			url VARCHAR(2048),
			status VARCHAR(32),
			priority VARCHAR(32),
			notes TEXT,
			source_email_id VARCHAR(16),
			created_at TIMESTAMP NULL,
			updated_at TIMESTAMP NULL,
			INDEX idx_job_records_url (url(255))
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// CreateJob stores a new record and returns its identifier
func (s *MySQLStore) CreateJob(ctx context.Context, job *core.JobRecord) (string, error) {
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
	`, id, job.Company, job.Title, job.URL, job.Status, job.Priority, job.Notes, job.SourceEmailID, createdAt, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert job record: %w", err)
	}

	return id, nil
}

// FindJob matches by URL first, then by company+title
func (s *MySQLStore) FindJob(ctx context.Context, url, company, title string) (string, error) {
	var id string

	if url != "" {
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM job_records WHERE url = ? LIMIT 1
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
			SELECT id FROM job_records WHERE company = ? AND title = ? LIMIT 1
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
func (s *MySQLStore) UpdateJobStatus(ctx context.Context, jobID, status, note string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_records
		SET status = ?,
		    notes = CASE WHEN ? = '' THEN notes
		                 WHEN notes = '' OR notes IS NULL THEN ?
		                 ELSE CONCAT(notes, '\n', ?) END,
		    updated_at = ?
		WHERE id = ?
	`, status, note, note, note, time.Now(), jobID)
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
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
