package entity

import (
	"time"
)

// MessageStatus represents the lifecycle state of a chat turn.
//
// State machine: Pending → Streaming → Completed | Error
// Streaming → Interrupted is applied only by the staleness reconciler after
// a worker died without reaching a terminal state.
type MessageStatus string

const (
	MessageStatusPending     MessageStatus = "pending"
	MessageStatusStreaming   MessageStatus = "streaming"
	MessageStatusCompleted   MessageStatus = "completed"
	MessageStatusError       MessageStatus = "error"
	MessageStatusInterrupted MessageStatus = "interrupted"
)

// IsTerminal returns true if no further automatic transition exists.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageStatusCompleted || s == MessageStatusError || s == MessageStatusInterrupted
}

// Role represents the sender of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TokenUsage tracks token consumption for a single turn.
// Written exactly once, at the terminal transition.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ChatMessage is one turn of the conversation plus its execution state.
//
// Ownership: while the status is non-terminal the message is mutated only by
// the worker that owns its task; every other caller reads snapshots. Once
// terminal it is immutable except for an explicit retry, which assigns a
// fresh TaskID and resets the status to pending.
type ChatMessage struct {
	// ID is the unique message identifier.
	ID string `json:"id"`

	// SessionID is the owning conversation.
	SessionID string `json:"session_id"`

	// Role is the message sender (user or assistant).
	Role Role `json:"role"`

	// Content is the accumulated assistant output (or the user input).
	Content string `json:"content"`

	// Status is the current lifecycle state.
	Status MessageStatus `json:"status"`

	// TaskID is the opaque handle of the async execution unit.
	// Set only for dispatched assistant turns.
	TaskID string `json:"task_id,omitempty"`

	// Logs accumulates worker-side progress notes (tool calls, consults).
	Logs []string `json:"logs,omitempty"`

	// ErrorMessage holds the failure detail for the error status.
	ErrorMessage string `json:"error_message,omitempty"`

	// Usage is populated at the terminal transition only.
	Usage *TokenUsage `json:"usage,omitempty"`

	// StreamingStartedAt is when the worker began producing output.
	StreamingStartedAt *time.Time `json:"streaming_started_at,omitempty"`

	// CompletedAt is set exactly once, on entering completed or error.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LastUpdatedAt is bumped on every worker write. The staleness
	// reconciler uses it to detect abandoned streaming messages.
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// CreatedAt is when the message record was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewPendingAssistantMessage creates the assistant turn record at dispatch
// time, bound to its task handle.
func NewPendingAssistantMessage(sessionID, taskID string) *ChatMessage {
	now := time.Now()
	return &ChatMessage{
		SessionID:     sessionID,
		Role:          RoleAssistant,
		Status:        MessageStatusPending,
		TaskID:        taskID,
		LastUpdatedAt: now,
		CreatedAt:     now,
	}
}

// Touch bumps the last-write watermark. Only the owning worker calls this.
func (m *ChatMessage) Touch() {
	m.LastUpdatedAt = time.Now()
}

// AppendLog records a worker-side progress note.
func (m *ChatMessage) AppendLog(line string) {
	m.Logs = append(m.Logs, line)
	m.Touch()
}
