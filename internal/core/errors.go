package core

import "errors"

var (
	// ErrValidation marks a structurally malformed payload. The message is
	// rejected before storage and the caller does not need to retry.
	ErrValidation = errors.New("invalid inbound payload")

	// ErrUnknownAddress marks a recipient with no registered forwarding
	// address. The message is dropped and logged, never persisted.
	ErrUnknownAddress = errors.New("unknown forwarding address")

	// ErrRateLimited marks an admission denied by the rate limiter. It is
	// surfaced to the caller as backpressure.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStorage marks a failed persistence attempt. Fatal for the message:
	// without a stored record there is no downstream audit trail.
	ErrStorage = errors.New("inbound storage failure")

	// ErrInvalidID marks a malformed or path-escaping store identifier.
	// Always a programming error or an attack attempt, never routine.
	ErrInvalidID = errors.New("invalid email identifier")

	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("record not found")
)
