package core

import (
	"fmt"
	"regexp"
	"time"
)

// Hard limits on inbound messages. These are security boundaries, not tuning
// knobs, so they are compile-time constants rather than configuration keys.
const (
	// MaxSubjectLength mirrors the RFC 5322 line-length ceiling for headers.
	MaxSubjectLength = 998
	// MaxMessageBytes caps the total size of a single inbound message.
	MaxMessageBytes = 1_000_000
	// MaxFutureSkew is how far in the future a received timestamp may claim to be.
	MaxFutureSkew = 24 * time.Hour
	// MaxMessageAge is how far in the past a received timestamp may claim to be.
	MaxMessageAge = 365 * 24 * time.Hour
)

// Bounded quantifiers keep address matching linear even on crafted input.
var addressPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]{1,64}@[A-Za-z0-9.\-]{1,253}\.[A-Za-z]{2,24}$`)

// ValidAddress reports whether s matches the accepted email-address grammar.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// EmailCategory is the detected type of an inbound email
type EmailCategory string

const (
	CategoryJobListing      EmailCategory = "job_listing"
	CategoryConfirmation    EmailCategory = "application_confirmation"
	CategoryRecruiterReach  EmailCategory = "recruiter_outreach"
	CategoryUnclassified    EmailCategory = "unclassified"
)

// ValidCategory reports whether s names a known email category.
func ValidCategory(s string) bool {
	switch EmailCategory(s) {
	case CategoryJobListing, CategoryConfirmation, CategoryRecruiterReach, CategoryUnclassified:
		return true
	}
	return false
}

// InboundEmail represents a single received message. Instances are built
// through NewInboundEmail and are immutable afterwards.
type InboundEmail struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	TextBody   string    `json:"text_body"`
	HTMLBody   string    `json:"html_body,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	SizeBytes  int       `json:"size_bytes"`
}

// NewInboundEmail validates and constructs an InboundEmail. Messages that
// violate any invariant are rejected outright, never silently truncated.
// The ID is assigned later by the inbound store.
func NewInboundEmail(userID, from, to, subject, textBody, htmlBody string, receivedAt time.Time) (*InboundEmail, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	if !ValidAddress(from) {
		return nil, fmt.Errorf("%w: malformed sender address %q", ErrValidation, from)
	}
	if !ValidAddress(to) {
		return nil, fmt.Errorf("%w: malformed recipient address %q", ErrValidation, to)
	}
	if len(subject) > MaxSubjectLength {
		return nil, fmt.Errorf("%w: subject length %d exceeds %d", ErrValidation, len(subject), MaxSubjectLength)
	}
	size := len(from) + len(to) + len(subject) + len(textBody) + len(htmlBody)
	if size > MaxMessageBytes {
		return nil, fmt.Errorf("%w: message size %d exceeds %d bytes", ErrValidation, size, MaxMessageBytes)
	}
	now := time.Now()
	if receivedAt.IsZero() {
		receivedAt = now
	}
	if receivedAt.After(now.Add(MaxFutureSkew)) {
		return nil, fmt.Errorf("%w: received timestamp %s is too far in the future", ErrValidation, receivedAt.Format(time.RFC3339))
	}
	if receivedAt.Before(now.Add(-MaxMessageAge)) {
		return nil, fmt.Errorf("%w: received timestamp %s is too far in the past", ErrValidation, receivedAt.Format(time.RFC3339))
	}

	return &InboundEmail{
		UserID:     userID,
		From:       from,
		To:         to,
		Subject:    subject,
		TextBody:   textBody,
		HTMLBody:   htmlBody,
		ReceivedAt: receivedAt,
		SizeBytes:  size,
	}, nil
}

// EmailAddressConfig holds the per-user forwarding address and its counters
type EmailAddressConfig struct {
	UserID          string    `json:"user_id"`
	Address         string    `json:"address"`
	CreatedAt       time.Time `json:"created_at"`
	EmailsProcessed int64     `json:"emails_processed"`
	LastEmailAt     time.Time `json:"last_email_at,omitempty"`
	IsActive        bool      `json:"is_active"`
}

// ClassificationResult is the transient output of the classifier for one
// email. It is consumed immediately by the processor and never persisted.
type ClassificationResult struct {
	Category       EmailCategory
	Confidence     float64
	Company        string
	JobTitle       string
	ApplicationURL string
	Excerpt        string
	// TimedOut records that pattern matching was abandoned at the deadline
	// and the extractions above are whatever had completed by then.
	TimedOut bool
}

// JobRecord is the shape handed to the external job-record collaborator
type JobRecord struct {
	ID            string    `json:"id"`
	Company       string    `json:"company"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Notes         string    `json:"notes"`
	SourceEmailID string    `json:"source_email_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Job record statuses and priorities understood by the collaborator.
const (
	JobStatusNew     = "new"
	JobStatusApplied = "applied"

	JobPriorityNormal = "normal"
	JobPriorityHigh   = "high"
)
