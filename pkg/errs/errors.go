package errs

import "errors"

// Sentinel errors shared by the ledgers and the service handlers.
// Handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound - unknown loan, reservation, user or document id
	ErrNotFound = errors.New("record not found")

	// ErrConflict - duplicate active loan/reservation for a (user, document) pair
	ErrConflict = errors.New("conflicting active record")

	// ErrValidation - business rule failure (wrong role, wrong format, wrong document status)
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState - status transition requested on a record already in a terminal state
	ErrInvalidState = errors.New("invalid status transition")

	// ErrUnavailable - collaborator service unreachable or timed out
	ErrUnavailable = errors.New("collaborator service unavailable")
)
