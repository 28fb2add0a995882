package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"plain address", "alice@example.com", true},
		{"plus tag", "alice+jobs@example.com", true},
		{"subdomain", "bob@mail.example.co.uk", true},
		{"missing at sign", "alice.example.com", false},
		{"missing local part", "@example.com", false},
		{"missing tld", "alice@example", false},
		{"numeric tld", "alice@example.123", false},
		{"empty", "", false},
		{"local part too long", strings.Repeat("a", 65) + "@example.com", false},
		{"spaces", "alice smith@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAddress(tt.address); got != tt.want {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{"job_listing", "application_confirmation", "recruiter_outreach", "unclassified"} {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false, want true", c)
		}
	}
	for _, c := range []string{"", "spam", "JOB_LISTING", "job listing"} {
		if ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = true, want false", c)
		}
	}
}

func TestNewInboundEmail(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		userID     string
		from       string
		to         string
		subject    string
		textBody   string
		receivedAt time.Time
		wantErr    bool
	}{
		{
			name:       "valid email",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			subject:    "Software Engineer opening",
			textBody:   "We have a role for you",
			receivedAt: now,
		},
		{
			name:       "missing user id",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			receivedAt: now,
			wantErr:    true,
		},
		{
			name:       "malformed sender",
			userID:     "user1234",
			from:       "not-an-address",
			to:         "user-ab12cd34@leads.jobfinder.local",
			receivedAt: now,
			wantErr:    true,
		},
		{
			name:       "malformed recipient",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "nope",
			receivedAt: now,
			wantErr:    true,
		},
		{
			name:       "subject at the limit",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			subject:    strings.Repeat("s", MaxSubjectLength),
			receivedAt: now,
		},
		{
			name:       "subject over the limit",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			subject:    strings.Repeat("s", MaxSubjectLength+1),
			receivedAt: now,
			wantErr:    true,
		},
		{
			name:       "oversize message",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			textBody:   strings.Repeat("x", 2_000_000),
			receivedAt: now,
			wantErr:    true,
		},
		{
			name:       "timestamp too far in the future",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			receivedAt: now.Add(48 * time.Hour),
			wantErr:    true,
		},
		{
			name:       "timestamp too far in the past",
			userID:     "user1234",
			from:       "recruiter@example.com",
			to:         "user-ab12cd34@leads.jobfinder.local",
			receivedAt: now.Add(-2 * 365 * 24 * time.Hour),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := NewInboundEmail(tt.userID, tt.from, tt.to, tt.subject, tt.textBody, "", tt.receivedAt)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if email.UserID != tt.userID {
				t.Errorf("UserID = %q, want %q", email.UserID, tt.userID)
			}
			wantSize := len(tt.from) + len(tt.to) + len(tt.subject) + len(tt.textBody)
			if email.SizeBytes != wantSize {
				t.Errorf("SizeBytes = %d, want %d", email.SizeBytes, wantSize)
			}
		})
	}
}

func TestNewInboundEmailZeroTimestampDefaults(t *testing.T) {
	email, err := NewInboundEmail("user1234", "a@example.com", "b@example.com", "hi", "body", "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should default to the current time")
	}
}
