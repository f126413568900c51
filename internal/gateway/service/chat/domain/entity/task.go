package entity

import (
	"time"
)

// TaskUnit is one queued chat-turn execution unit.
//
// The dispatcher enqueues exactly one unit per dispatched turn; workers pull
// units, execute the turn, and acknowledge. Attempts counts deliveries so
// the queue can enforce its bounded retry budget.
type TaskUnit struct {
	// TaskID is the opaque task handle returned to the client.
	TaskID string `json:"task_id"`

	// MessageID is the assistant message this task produces.
	MessageID string `json:"message_id"`

	// SessionID is the owning conversation.
	SessionID string `json:"session_id"`

	// Input is the user message that triggered this turn.
	Input string `json:"input"`

	// Attempts is the number of times this unit has been delivered.
	Attempts int `json:"attempts"`

	// EnqueuedAt is when the unit entered the queue.
	EnqueuedAt time.Time `json:"enqueued_at"`
}
