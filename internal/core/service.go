package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Outcome is the terminal disposition of one inbound delivery
type Outcome string

const (
	// OutcomeAccepted means the message was stored and fully processed.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means the payload failed structural validation.
	OutcomeRejected Outcome = "rejected"
	// OutcomeDropped means the recipient address is not registered.
	OutcomeDropped Outcome = "dropped"
	// OutcomeRateLimited means admission was denied as backpressure.
	OutcomeRateLimited Outcome = "rate_limited"
)

// InboundPayload is the raw webhook delivery before validation
type InboundPayload struct {
	To         string
	From       string
	Subject    string
	Text       string
	HTML       string
	ReceivedAt time.Time
}

// IngestResult reports what happened to one inbound delivery
type IngestResult struct {
	Outcome        Outcome
	EmailID        string
	Classification *ClassificationResult
	JobID          string
}

// How long the optional assist classifier may spend on one email.
const assistTimeout = 10 * time.Second

// IngestService is the end-to-end inbound email pipeline
type IngestService struct {
	registry   AddressRegistry
	store      InboundStore
	limiter    RateLimiter
	sanitizer  Sanitizer
	classifier Classifier
	jobs       JobStore
	assist     AssistClient
	logger     *zap.Logger
}

// NewIngestService creates a new ingestion pipeline
func NewIngestService(
	registry AddressRegistry,
	store InboundStore,
	limiter RateLimiter,
	sanitizer Sanitizer,
	classifier Classifier,
	jobs JobStore,
	assist AssistClient,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		registry:   registry,
		store:      store,
		limiter:    limiter,
		sanitizer:  sanitizer,
		classifier: classifier,
		jobs:       jobs,
		assist:     assist,
		logger:     logger,
	}
}

// HandleInbound runs one delivery through the full pipeline. Each stage may
// short-circuit with a terminal outcome. A dropped message is not an error
// from the webhook caller's point of view; validation failures, rate limiting
// and storage failures are surfaced as typed errors so transports can map
// them to status codes.
func (s *IngestService) HandleInbound(ctx context.Context, p *InboundPayload) (*IngestResult, error) {
	// Stage 1: structural validation, before any lookup or storage.
	if err := validatePayload(p); err != nil {
		s.logger.Info("Rejected malformed inbound payload",
			zap.String("from", p.From),
			zap.String("to", p.To),
			zap.Error(err))
		return &IngestResult{Outcome: OutcomeRejected}, err
	}

	// Stage 2: resolve the forwarding address to a user.
	userID, err := s.registry.Resolve(ctx, p.To)
	if err != nil {
		s.logger.Info("Dropped email for unregistered forwarding address",
			zap.String("to", p.To),
			zap.String("from", p.From))
		return &IngestResult{Outcome: OutcomeDropped}, nil
	}

	// Stage 3: admission control.
	if !s.limiter.Admit(ctx, userID) {
		s.logger.Warn("Rate limit exceeded for user",
			zap.String("user_id", userID))
		return &IngestResult{Outcome: OutcomeRateLimited}, ErrRateLimited
	}

	email, err := NewInboundEmail(userID, p.From, p.To, p.Subject, p.Text, p.HTML, p.ReceivedAt)
	if err != nil {
		return &IngestResult{Outcome: OutcomeRejected}, err
	}

	// Stage 4: persistence. Failure here is fatal for the message since the
	// stored record is the only audit trail.
	id, err := s.store.Put(ctx, email)
	if err != nil {
		s.logger.Error("Failed to persist inbound email",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	email.ID = id

	// Stage 5: sanitize and classify.
	body := email.TextBody
	if email.HTMLBody != "" {
		body = body + "\n" + s.sanitizer.HTML(email.HTMLBody)
	}
	result := s.classifier.Classify(ctx, email.Subject, body, email.From)
	if result.TimedOut {
		s.logger.Warn("Classification timed out, continuing with partial result",
			zap.String("email_id", id))
	}

	if result.Category == CategoryUnclassified && s.assist != nil {
		result = s.consultAssist(ctx, email, result)
	}

	// Stage 6: collaborator dispatch. Classification failures are logged,
	// never surfaced as webhook errors, so an external retry mechanism is
	// not trained on ambiguous emails.
	jobID := s.dispatch(ctx, email, result)

	// Stage 7: per-user counters.
	if err := s.registry.RecordProcessed(ctx, userID); err != nil {
		s.logger.Error("Failed to update address counters",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	s.logger.Info("Processed inbound email",
		zap.String("email_id", id),
		zap.String("user_id", userID),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.String("job_id", jobID))

	return &IngestResult{
		Outcome:        OutcomeAccepted,
		EmailID:        id,
		Classification: result,
		JobID:          jobID,
	}, nil
}

// consultAssist asks the optional LLM classifier for a second opinion on an
// email the rule engine could not place. Assist failures are soft.
func (s *IngestService) consultAssist(ctx context.Context, email *InboundEmail, fallback *ClassificationResult) *ClassificationResult {
	assistCtx, cancel := context.WithTimeout(ctx, assistTimeout)
	defer cancel()

	result, err := s.assist.ClassifyEmail(assistCtx, email)
	if err != nil {
		s.logger.Warn("Assist classifier failed, keeping rule result",
			zap.String("email_id", email.ID),
			zap.Error(err))
		return fallback
	}
	// Keep rule-engine extractions the assist response did not fill in.
	if result.Company == "" {
		result.Company = fallback.Company
	}
	if result.JobTitle == "" {
		result.JobTitle = fallback.JobTitle
	}
	if result.ApplicationURL == "" {
		result.ApplicationURL = fallback.ApplicationURL
	}
	return result
}

// dispatch calls the job-record collaborator according to the detected
// category. Returns the affected job identifier, or "" when nothing was done.
func (s *IngestService) dispatch(ctx context.Context, email *InboundEmail, result *ClassificationResult) string {
	switch result.Category {
	case CategoryJobListing:
		jobID, err := s.jobs.CreateJob(ctx, &JobRecord{
			Company:       result.Company,
			Title:         result.JobTitle,
			URL:           result.ApplicationURL,
			Status:        JobStatusNew,
			Priority:      JobPriorityNormal,
			Notes:         result.Excerpt,
			SourceEmailID: email.ID,
		})
		if err != nil {
			s.logger.Error("Failed to create job record from listing",
				zap.String("email_id", email.ID),
				zap.Error(err))
			return ""
		}
		return jobID

	case CategoryConfirmation:
		jobID, err := s.jobs.FindJob(ctx, result.ApplicationURL, result.Company, result.JobTitle)
		if err != nil {
			s.logger.Error("Job record lookup failed",
				zap.String("email_id", email.ID),
				zap.Error(err))
			return ""
		}
		if jobID != "" {
			note := fmt.Sprintf("confirmation email %s received %s", email.ID, email.ReceivedAt.Format(time.RFC3339))
			if err := s.jobs.UpdateJobStatus(ctx, jobID, JobStatusApplied, note); err != nil {
				s.logger.Error("Failed to mark job record applied",
					zap.String("job_id", jobID),
					zap.Error(err))
			}
			return jobID
		}
		// No existing record: create one already in applied status.
		jobID, err = s.jobs.CreateJob(ctx, &JobRecord{
			Company:       result.Company,
			Title:         result.JobTitle,
			URL:           result.ApplicationURL,
			Status:        JobStatusApplied,
			Priority:      JobPriorityNormal,
			Notes:         result.Excerpt,
			SourceEmailID: email.ID,
		})
		if err != nil {
			s.logger.Error("Failed to create applied job record from confirmation",
				zap.String("email_id", email.ID),
				zap.Error(err))
			return ""
		}
		return jobID

	case CategoryRecruiterReach:
		jobID, err := s.jobs.CreateJob(ctx, &JobRecord{
			Company:       result.Company,
			Title:         result.JobTitle,
			URL:           result.ApplicationURL,
			Status:        JobStatusNew,
			Priority:      JobPriorityHigh,
			Notes:         fmt.Sprintf("recruiter contact: %s", email.From),
			SourceEmailID: email.ID,
		})
		if err != nil {
			s.logger.Error("Failed to create job record from recruiter outreach",
				zap.String("email_id", email.ID),
				zap.Error(err))
			return ""
		}
		return jobID
	}

	// Unclassified: no collaborator call.
	return ""
}

// validatePayload checks the raw delivery before it touches any other
// component. Mirrors the invariants enforced again by NewInboundEmail.
func validatePayload(p *InboundPayload) error {
	if p == nil {
		return fmt.Errorf("%w: empty payload", ErrValidation)
	}
	if !ValidAddress(p.From) {
		return fmt.Errorf("%w: malformed sender address %q", ErrValidation, p.From)
	}
	if !ValidAddress(p.To) {
		return fmt.Errorf("%w: malformed recipient address %q", ErrValidation, p.To)
	}
	if len(p.Subject) > MaxSubjectLength {
		return fmt.Errorf("%w: subject length %d exceeds %d", ErrValidation, len(p.Subject), MaxSubjectLength)
	}
	size := len(p.From) + len(p.To) + len(p.Subject) + len(p.Text) + len(p.HTML)
	if size > MaxMessageBytes {
		return fmt.Errorf("%w: message size %d exceeds %d bytes", ErrValidation, size, MaxMessageBytes)
	}
	if !p.ReceivedAt.IsZero() {
		now := time.Now()
		if p.ReceivedAt.After(now.Add(MaxFutureSkew)) {
			return fmt.Errorf("%w: received timestamp too far in the future", ErrValidation)
		}
		if p.ReceivedAt.Before(now.Add(-MaxMessageAge)) {
			return fmt.Errorf("%w: received timestamp too far in the past", ErrValidation)
		}
	}
	return nil
}
