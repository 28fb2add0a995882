package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
)

const testDomain = "leads.jobfinder.local"

func newTestRegistry(t *testing.T) (*FileRegistry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses.json")
	r, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileRegistry: %v", err)
	}
	return r, path
}

func TestProvisionGeneratesAddress(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	address, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !strings.HasPrefix(address, "user-") || !strings.HasSuffix(address, "@"+testDomain) {
		t.Errorf("address %q does not match user-<token>@%s", address, testDomain)
	}
	if !core.ValidAddress(address) {
		t.Errorf("generated address %q fails the address grammar", address)
	}
}

func TestProvisionIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	second, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision again: %v", err)
	}
	if first != second {
		t.Errorf("repeated provision changed the address: %q vs %q", first, second)
	}
}

func TestProvisionRejectsEmptyUser(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Provision(context.Background(), ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Provision(\"\") = %v, want ErrValidation", err)
	}
}

func TestResolve(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	address, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	userID, err := r.Resolve(ctx, address)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if userID != "user1234" {
		t.Errorf("Resolve = %q, want %q", userID, "user1234")
	}

	if _, err := r.Resolve(ctx, "stranger@elsewhere.example"); !errors.Is(err, core.ErrUnknownAddress) {
		t.Errorf("Resolve(unknown) = %v, want ErrUnknownAddress", err)
	}
}

func TestRecordProcessedAndStats(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Provision(ctx, "user1234"); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := r.RecordProcessed(ctx, "user1234"); err != nil {
			t.Fatalf("RecordProcessed: %v", err)
		}
	}

	stats, err := r.Stats(ctx, "user1234")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.EmailsProcessed != 3 {
		t.Errorf("EmailsProcessed = %d, want 3", stats.EmailsProcessed)
	}
	if stats.LastEmailAt.IsZero() {
		t.Error("LastEmailAt not set")
	}

	if _, err := r.Stats(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Stats(unknown) = %v, want ErrNotFound", err)
	}
}

func TestStatsReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Provision(ctx, "user1234"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	stats, err := r.Stats(ctx, "user1234")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	stats.EmailsProcessed = 999

	again, err := r.Stats(ctx, "user1234")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if again.EmailsProcessed != 0 {
		t.Error("Stats must return a copy, not the live record")
	}
}

func TestDeactivateAndReprovision(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := r.Deactivate(ctx, "user1234"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	// Old address no longer resolves.
	if _, err := r.Resolve(ctx, first); !errors.Is(err, core.ErrUnknownAddress) {
		t.Errorf("Resolve(deactivated) = %v, want ErrUnknownAddress", err)
	}

	// A fresh provision issues a new address.
	second, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision after deactivate: %v", err)
	}
	if second == first {
		t.Errorf("re-provision returned the deactivated address %q", first)
	}
	if _, err := r.Resolve(ctx, second); err != nil {
		t.Errorf("Resolve(new address): %v", err)
	}
}

func TestRegistryPersistsAcrossRestarts(t *testing.T) {
	r, path := newTestRegistry(t)
	ctx := context.Background()

	address, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := r.RecordProcessed(ctx, "user1234"); err != nil {
		t.Fatalf("RecordProcessed: %v", err)
	}

	reloaded, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	userID, err := reloaded.Resolve(ctx, address)
	if err != nil {
		t.Fatalf("Resolve after reload: %v", err)
	}
	if userID != "user1234" {
		t.Errorf("Resolve = %q, want %q", userID, "user1234")
	}
	stats, err := reloaded.Stats(ctx, "user1234")
	if err != nil {
		t.Fatalf("Stats after reload: %v", err)
	}
	if stats.EmailsProcessed != 1 {
		t.Errorf("EmailsProcessed = %d, want 1", stats.EmailsProcessed)
	}
}

func TestDeactivatedAddressStaysUnresolvableAfterReload(t *testing.T) {
	r, path := newTestRegistry(t)
	ctx := context.Background()

	address, err := r.Provision(ctx, "user1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := r.Deactivate(ctx, "user1234"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	reloaded, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := reloaded.Resolve(ctx, address); !errors.Is(err, core.ErrUnknownAddress) {
		t.Errorf("Resolve(deactivated, reloaded) = %v, want ErrUnknownAddress", err)
	}
	// Counters survive deactivation.
	if _, err := reloaded.Stats(ctx, "user1234"); err != nil {
		t.Errorf("Stats(deactivated, reloaded): %v", err)
	}
}

func TestCorruptRegistryResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileRegistry on corrupt file: %v", err)
	}

	// The registry starts empty and the reset state is persisted as valid JSON.
	if _, err := r.Resolve(context.Background(), "user-deadbeef@"+testDomain); !errors.Is(err, core.ErrUnknownAddress) {
		t.Errorf("Resolve on reset registry = %v, want ErrUnknownAddress", err)
	}
	reloaded, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("reload of reset registry: %v", err)
	}
	if _, err := reloaded.Provision(context.Background(), "user1234"); err != nil {
		t.Errorf("Provision after reset: %v", err)
	}
}

func TestUnreadableRegistryIsFatal(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not bind as root")
	}
	path := filepath.Join(t.TempDir(), "addresses.json")
	if err := os.WriteFile(path, []byte("{}"), 0o000); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewFileRegistry(path, testDomain, zap.NewNop()); err == nil {
		t.Error("unreadable registry file must fail construction, not reset")
	}
}

func TestMissingRegistryFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "addresses.json")
	r, err := NewFileRegistry(path, testDomain, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileRegistry: %v", err)
	}
	if _, err := r.Provision(context.Background(), "user1234"); err != nil {
		t.Errorf("Provision with nested missing path: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("registry file not created: %v", err)
	}
}
