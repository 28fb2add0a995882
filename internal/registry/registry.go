// Package registry maps per-user forwarding addresses to user identities and
// keeps the per-address counters, persisted as a single JSON file.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

// tokenBytes is the entropy of a forwarding-address token: 4 random bytes
// rendered as 8 hex characters.
const tokenBytes = 4

// FileRegistry is the JSON-file-backed core.AddressRegistry implementation
type FileRegistry struct {
	path   string
	domain string
	logger *zap.Logger

	mu     sync.RWMutex
	byUser map[string]*core.EmailAddressConfig
	byAddr map[string]string
}

// NewFileRegistry loads or creates the registry at path. A corrupt file is
// reset to an empty, valid state and persisted; any other read failure is
// fatal, since silently starting empty would overwrite prior data on the
// next save.
func NewFileRegistry(path, domain string, logger *zap.Logger) (*FileRegistry, error) {
	r := &FileRegistry{
		path:   path,
		domain: domain,
		logger: logger,
		byUser: make(map[string]*core.EmailAddressConfig),
		byAddr: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("failed to read address registry: %w", err)
	default:
		var configs map[string]*core.EmailAddressConfig
		if jsonErr := json.Unmarshal(data, &configs); jsonErr != nil {
			logger.Warn("Address registry file is corrupt, resetting to empty state",
				zap.String("path", path),
				zap.Error(jsonErr))
			if err := r.save(); err != nil {
				return nil, fmt.Errorf("failed to persist reset registry: %w", err)
			}
		} else {
			r.byUser = configs
			for userID, cfg := range configs {
				if cfg.IsActive {
					r.byAddr[cfg.Address] = userID
				}
			}
		}
	}

	return r, nil
}

// Provision returns the user's forwarding address, generating one on first
// call. Repeated calls return the same address while the user is active; a
// deactivated user gets a fresh address.
func (r *FileRegistry) Provision(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: missing user id", core.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg, ok := r.byUser[userID]; ok && cfg.IsActive {
		return cfg.Address, nil
	}

	address, err := r.generateAddress()
	if err != nil {
		return "", err
	}

	cfg := &core.EmailAddressConfig{
		UserID:    userID,
		Address:   address,
		CreatedAt: time.Now(),
		IsActive:  true,
	}
	r.byUser[userID] = cfg
	r.byAddr[address] = userID

	if err := r.save(); err != nil {
		delete(r.byUser, userID)
		delete(r.byAddr, address)
		return "", err
	}

	r.logger.Info("Provisioned forwarding address",
		zap.String("user_id", userID),
		zap.String("address", address))
	return address, nil
}

// Resolve looks up the owner of a forwarding address
func (r *FileRegistry) Resolve(ctx context.Context, address string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byAddr[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownAddress, address)
	}
	return userID, nil
}

// Stats returns a copy of the user's address configuration
func (r *FileRegistry) Stats(ctx context.Context, userID string) (*core.EmailAddressConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
	}
	out := *cfg
	return &out, nil
}

// RecordProcessed bumps the processed counter and last-email timestamp
func (r *FileRegistry) RecordProcessed(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.byUser[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
	}
	cfg.EmailsProcessed++
	cfg.LastEmailAt = time.Now()
	return r.save()
}

// Deactivate disables the user's forwarding address. The record is kept so
// counters survive; a later Provision issues a fresh address.
func (r *FileRegistry) Deactivate(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.byUser[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", core.ErrNotFound, userID)
	}
	cfg.IsActive = false
	delete(r.byAddr, cfg.Address)
	return r.save()
}

// generateAddress builds user-<token>@<domain>, retrying on the rare token
// collision. Caller holds the lock.
func (r *FileRegistry) generateAddress() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, tokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate address token: %w", err)
		}
		address := fmt.Sprintf("user-%s@%s", hex.EncodeToString(buf), r.domain)
		if _, taken := r.byAddr[address]; !taken {
			return address, nil
		}
	}
	return "", fmt.Errorf("failed to generate forwarding address: token space exhausted")
}

// save writes the registry atomically via a temp file and rename. Caller
// holds the lock.
func (r *FileRegistry) save() error {
	data, err := json.MarshalIndent(r.byUser, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode address registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("failed to write address registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace address registry: %w", err)
	}
	return nil
}
