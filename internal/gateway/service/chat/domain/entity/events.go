package entity

// EventType identifies the type of a task stream event.
type EventType string

const (
	// EventDelta is a chunk of assistant output.
	EventDelta EventType = "delta"

	// EventStatus signals a task status change (pending → streaming).
	EventStatus EventType = "status"

	// EventToolCall notes that a tool invocation started.
	EventToolCall EventType = "tool_call"

	// EventConsult notes that a specialist consultation started.
	EventConsult EventType = "consult"

	// EventDone is the terminal event. It carries the final status and is
	// always the last event a subscriber receives before the stream closes.
	EventDone EventType = "done"
)

// StreamEvent is one increment of a task's observable output.
//
// Events for one message are strictly ordered by Seq in generation order;
// no ordering holds across distinct messages.
type StreamEvent struct {
	// Type identifies which kind of event this is.
	Type EventType `json:"type"`

	// MessageID is the message this event belongs to.
	MessageID string `json:"message_id"`

	// Seq is the per-message sequence number, starting at 1.
	Seq int `json:"seq"`

	// Delta is the output chunk for EventDelta.
	Delta string `json:"delta,omitempty"`

	// Status is the new lifecycle state for EventStatus and EventDone.
	Status MessageStatus `json:"status,omitempty"`

	// ToolSymbol is the invoked tool for EventToolCall.
	ToolSymbol string `json:"tool_symbol,omitempty"`

	// Specialist is the consulted specialist name for EventConsult.
	Specialist string `json:"specialist,omitempty"`

	// Error carries the failure detail on an error-terminal EventDone.
	Error string `json:"error,omitempty"`

	// Usage carries token usage on EventDone.
	Usage *TokenUsage `json:"usage,omitempty"`
}
