package types

import "errors"

// Kernel error kinds. Sentinel variables so that callers detect conditions via
// errors.Is instead of string comparison; the syscall layer maps them onto
// negative result codes.

var (
	// ErrInvalidPriority rejects a set-priority argument below the minimum.
	// Offending values are refused, never clamped.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNoSuchProcess is returned when the target of a syscall does not
	// exist or the caller is not permitted to act on it.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrResourceExhausted surfaces process-table exhaustion during spawn,
	// unchanged from the process-creation primitive.
	ErrResourceExhausted = errors.New("resource exhausted")
)
