package conversation

import "errors"

// ErrorCode classifies turn failures for clients. Codes ride as error_code in
// the response data of error-typed messages. Classification failures carry no
// code: they resolve to the general physician fallback, never to an error
// message.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "validation_failed"
	ErrCodeAvailability ErrorCode = "availability_failed"
	ErrCodeSlotConflict ErrorCode = "slot_conflict"
	ErrCodeSessionGone  ErrorCode = "session_not_found"
	ErrCodeInternal     ErrorCode = "internal"
)

// ErrSessionNotFound indicates the session ID is unknown or has expired.
// Callers are expected to create a new session; the engine never recreates
// one implicitly.
var ErrSessionNotFound = errors.New("conversation: session not found")
