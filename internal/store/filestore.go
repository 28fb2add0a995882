// Package store persists raw inbound emails as one JSON record per message
// under a single root directory. The generated identifier is the only
// externally-influenceable input to a lookup, so it is validated before any
// path construction and the resolved path is re-checked against the root.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/metrics"
)

const (
	// IDLength is the exact length of a store identifier.
	IDLength = 16

	// RetentionPeriod is how long records are kept before eviction.
	RetentionPeriod = 30 * 24 * time.Hour

	// MaxPerUser caps how many records one user may accumulate.
	MaxPerUser = 1000
	// evictTarget is the count kept after trimming a capped user, leaving a
	// margin so eviction is not re-triggered on every insert.
	evictTarget = 900

	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var idGrammar = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

// ValidateID checks the identifier grammar: exactly 16 alphanumeric
// characters, nothing else. Runs before any path work.
func ValidateID(id string) error {
	if len(id) != IDLength {
		return fmt.Errorf("%w: length %d, want %d", core.ErrInvalidID, len(id), IDLength)
	}
	if !idGrammar.MatchString(id) {
		return fmt.Errorf("%w: non-alphanumeric characters in %q", core.ErrInvalidID, id)
	}
	return nil
}

// record is the on-disk shape of one stored email
type record struct {
	core.InboundEmail
	StoredAt time.Time `json:"stored_at"`
}

// FileStore is a file-backed implementation of the core.InboundStore port
type FileStore struct {
	root      string
	logger    *zap.Logger
	sweepFreq time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewFileStore creates a file store rooted at root. When sweepFreq is
// positive a background eviction sweep runs at that frequency until Stop.
func NewFileStore(root string, logger *zap.Logger, sweepFreq time.Duration) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	s := &FileStore{
		root:      abs,
		logger:    logger,
		sweepFreq: sweepFreq,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}

	if sweepFreq > 0 {
		go s.startSweepTask()
	}

	return s, nil
}

// Put stores the email under a freshly generated identifier and returns it.
// The identifier is never caller-supplied: storage paths are derived only
// from values this package generated itself.
func (s *FileStore) Put(ctx context.Context, email *core.InboundEmail) (string, error) {
	rec := record{InboundEmail: *email, StoredAt: s.now()}

	// The identifier space makes collisions vanishingly rare; the O_EXCL
	// create turns one into a retry instead of an overwrite.
	for attempt := 0; attempt < 3; attempt++ {
		id, err := generateID()
		if err != nil {
			return "", fmt.Errorf("failed to generate identifier: %w", err)
		}
		rec.ID = id

		data, err := json.Marshal(&rec)
		if err != nil {
			return "", fmt.Errorf("failed to encode email record: %w", err)
		}

		path := filepath.Join(s.root, id+".json")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf("failed to create email record: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write email record: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to close email record: %w", err)
		}

		s.logger.Debug("Stored inbound email",
			zap.String("email_id", id),
			zap.String("user_id", email.UserID),
			zap.Int("size_bytes", email.SizeBytes))
		return id, nil
	}

	return "", fmt.Errorf("failed to store email: exhausted identifier attempts")
}

// Get retrieves a stored email by identifier. Malformed identifiers and any
// resolved path escaping the store root fail with ErrInvalidID before the
// file system is touched.
func (s *FileStore) Get(ctx context.Context, id string) (*core.InboundEmail, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: email %s", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read email record: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode email record %s: %w", id, err)
	}
	return &rec.InboundEmail, nil
}

// EvictExpired removes records older than the retention window, then trims
// each user above the cap down to the retain margin, oldest first. Deletion
// goes through the same identifier-validated path logic as Get, never a bulk
// directory wipe.
func (s *FileStore) EvictExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list store root: %w", err)
	}

	type stamped struct {
		id       string
		storedAt time.Time
	}

	cutoff := s.now().Add(-RetentionPeriod)
	removed := 0
	perUser := make(map[string][]stamped)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok || ValidateID(id) != nil {
			// Not one of ours; leave it alone.
			continue
		}

		rec, err := s.readRecord(id)
		if err != nil {
			s.logger.Warn("Skipping unreadable record during eviction",
				zap.String("email_id", id),
				zap.Error(err))
			continue
		}

		if rec.StoredAt.Before(cutoff) {
			if err := s.remove(id); err != nil {
				s.logger.Error("Failed to evict expired record",
					zap.String("email_id", id),
					zap.Error(err))
				continue
			}
			removed++
			continue
		}
		perUser[rec.UserID] = append(perUser[rec.UserID], stamped{id: rec.ID, storedAt: rec.StoredAt})
	}

	for userID, recs := range perUser {
		if len(recs) <= MaxPerUser {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].storedAt.After(recs[j].storedAt) })
		for _, victim := range recs[evictTarget:] {
			if err := s.remove(victim.id); err != nil {
				s.logger.Error("Failed to evict surplus record",
					zap.String("email_id", victim.id),
					zap.String("user_id", userID),
					zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Evicted inbound email records", zap.Int("count", removed))
	}
	metrics.AddEvicted(removed)
	return removed, nil
}

// Stop terminates the background sweep
func (s *FileStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// resolve validates the identifier and returns the record path, verifying
// that the cleaned path is still contained in the store root.
func (s *FileStore) resolve(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	path := filepath.Clean(filepath.Join(s.root, id+".json"))
	if !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: resolved path escapes store root", core.ErrInvalidID)
	}
	return path, nil
}

func (s *FileStore) readRecord(id string) (*record, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FileStore) remove(id string) error {
	path, err := s.resolve(id)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (s *FileStore) startSweepTask() {
	ticker := time.NewTicker(s.sweepFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.EvictExpired(context.Background()); err != nil {
				s.logger.Error("Eviction sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// generateID returns a fresh 16-character alphanumeric identifier from a
// cryptographically secure source.
func generateID() (string, error) {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	id := make([]byte, IDLength)
	for i, b := range buf {
		id[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(id), nil
}
