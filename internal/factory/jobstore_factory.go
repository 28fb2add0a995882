package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/adapters/jobstore"
	"github.com/vcaboara/job-lead-finder-sub000/internal/config"
	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// JobStoreFactory creates job-record stores based on configuration
type JobStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJobStoreFactory creates a new job store factory
func NewJobStoreFactory(cfg *config.Config, logger *zap.Logger) *JobStoreFactory {
	return &JobStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateJobStore creates a job store based on the configuration
func (f *JobStoreFactory) CreateJobStore() (core.JobStore, error) {
	storeType := f.cfg.GetString("jobstore.type")

	switch storeType {
	case "memory":
		return jobstore.NewMemoryStore(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("jobstore.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return jobstore.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("jobstore.mysql_dsn")
		return jobstore.NewMySQLStore(mysqlDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported job store type: %s", storeType)
	}
}
