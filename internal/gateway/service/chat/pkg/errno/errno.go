// Package errno holds the sentinel errors of the chat domain taxonomy.
package errno

import (
	"errors"
)

var (
	// Validation failures (administrative CRUD rejects, no partial write).
	ErrDuplicateName   = errors.New("tool name already exists")
	ErrDuplicateSymbol = errors.New("tool symbol already exists")
	ErrMissingPayload  = errors.New("required field missing for tool type")
	ErrInvalidEnum     = errors.New("invalid enum value")
	ErrMissingInput    = errors.New("input must not be empty")

	// Invariant violations.
	ErrInvariantViolation = errors.New("tool cannot be enabled before its test passed")

	// Not-found conditions.
	ErrToolNotFound       = errors.New("tool not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSpecialistNotFound = errors.New("specialist not found")
	ErrTaskNotFound       = errors.New("task not found")

	// Lifecycle faults.
	ErrMessageNotTerminal = errors.New("message is not in a terminal state")
	ErrTaskAlreadyDone    = errors.New("task already reached a terminal state")
	ErrQueueClosed        = errors.New("task queue is closed")
	ErrQueueFull          = errors.New("task queue is full")

	// Execution classification (recovered locally, never aborts the turn).
	ErrNoEntrypoint = errors.New("no entry point found")
	ErrExecution    = errors.New("tool execution failed")
	ErrRemote       = errors.New("remote request failed")
	ErrTimeout      = errors.New("deadline exceeded")
)
