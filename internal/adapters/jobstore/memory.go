// Package jobstore provides implementations of the job-record collaborator
// the ingestion pipeline dispatches to.
package jobstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// MemoryStore is an in-memory implementation of the core.JobStore port
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*core.JobRecord
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory job store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*core.JobRecord),
		logger: logger,
	}
}

// CreateJob stores a new record and returns its identifier
func (s *MemoryStore) CreateJob(ctx context.Context, job *core.JobRecord) (string, error) {
	id, err := newJobID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.jobs[id] = &stored

	s.logger.Debug("Created job record",
		zap.String("job_id", id),
		zap.String("company", stored.Company),
		zap.String("title", stored.Title))
	return id, nil
}

// FindJob matches by URL first, then by company+title, case-insensitively
func (s *MemoryStore) FindJob(ctx context.Context, url, company, title string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if url != "" {
		for id, job := range s.jobs {
			if job.URL != "" && strings.EqualFold(job.URL, url) {
				return id, nil
			}
		}
	}
	if company != "" && title != "" {
		for id, job := range s.jobs {
			if strings.EqualFold(job.Company, company) && strings.EqualFold(job.Title, title) {
				return id, nil
			}
		}
	}
	return "", nil
}

// UpdateJobStatus transitions a record's status, optionally appending a note
func (s *MemoryStore) UpdateJobStatus(ctx context.Context, jobID, status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: job %s", core.ErrNotFound, jobID)
	}
	job.Status = status
	if note != "" {
		if job.Notes != "" {
			job.Notes += "\n"
		}
		job.Notes += note
	}
	return nil
}

// Get returns a copy of a record, for tests and diagnostics
func (s *MemoryStore) Get(jobID string) (*core.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	out := *job
	return &out, true
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// newJobID returns a 16-hex-character record identifier
func newJobID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate job id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
