package core

import (
	"context"
)

// AddressRegistry maps per-user forwarding addresses to user identities
type AddressRegistry interface {
	// Provision returns the user's forwarding address, generating one on
	// first call. Idempotent while the user remains active.
	Provision(ctx context.Context, userID string) (string, error)

	// Resolve looks up the owner of a forwarding address. Unknown addresses
	// yield ErrUnknownAddress.
	Resolve(ctx context.Context, address string) (string, error)

	// Stats returns the user's address configuration and counters.
	Stats(ctx context.Context, userID string) (*EmailAddressConfig, error)

	// RecordProcessed bumps the processed counter and last-email timestamp.
	RecordProcessed(ctx context.Context, userID string) error

	// Deactivate disables the user's forwarding address without deleting it.
	Deactivate(ctx context.Context, userID string) error
}

// InboundStore persists raw inbound emails keyed by a generated identifier
type InboundStore interface {
	// Put stores the email and returns the generated 16-character identifier.
	Put(ctx context.Context, email *InboundEmail) (string, error)

	// Get retrieves a stored email. Identifiers that fail the grammar or
	// resolve outside the store root yield ErrInvalidID before any
	// file-system access.
	Get(ctx context.Context, id string) (*InboundEmail, error)

	// EvictExpired removes records past retention and trims per-user
	// surplus, oldest first. Returns the number of records removed.
	EvictExpired(ctx context.Context) (int, error)
}

// RateLimiter performs sliding-window admission control per user
type RateLimiter interface {
	// Admit reports whether the user may be admitted now, recording the
	// admission if so.
	Admit(ctx context.Context, userID string) bool
}

// Sanitizer strips active content from HTML bodies
type Sanitizer interface {
	HTML(input string) string
}

// Classifier determines email type and extracts structured fields
type Classifier interface {
	// Classify never fails: pathological input degrades to a partial or
	// unclassified result rather than an error.
	Classify(ctx context.Context, subject, body, sender string) *ClassificationResult
}

// AssistClient is an optional second-opinion classifier backed by an LLM
type AssistClient interface {
	ClassifyEmail(ctx context.Context, email *InboundEmail) (*ClassificationResult, error)
}

// JobStore is the external job-record collaborator
type JobStore interface {
	// CreateJob creates a record and returns its identifier.
	CreateJob(ctx context.Context, job *JobRecord) (string, error)

	// FindJob matches by URL first, then by company+title. Returns an empty
	// identifier with a nil error when nothing matches.
	FindJob(ctx context.Context, url, company, title string) (string, error)

	// UpdateJobStatus transitions a record's status, optionally appending a note.
	UpdateJobStatus(ctx context.Context, jobID, status, note string) error
}

// InboundServer is a driving adapter delivering webhook or SMTP payloads
type InboundServer interface {
	// Start starts accepting inbound deliveries.
	Start() error

	// Stop shuts the server down.
	Stop() error
}
