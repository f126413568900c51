package entity

import (
	"time"
)

// ChatSession is a persistent conversation between a user and the assistant.
type ChatSession struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// Title is a short user-facing label for the conversation.
	Title string `json:"title,omitempty"`

	// Usage tracks cumulative token usage across all turns.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Metadata holds arbitrary key-value pairs for extensibility.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when this session was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this session was last touched by a dispatch.
	UpdatedAt time.Time `json:"updated_at"`
}

// AddUsage accumulates token usage from a completed turn.
func (s *ChatSession) AddUsage(usage *TokenUsage) {
	if usage == nil {
		return
	}
	if s.Usage == nil {
		s.Usage = &TokenUsage{}
	}
	s.Usage.PromptTokens += usage.PromptTokens
	s.Usage.CompletionTokens += usage.CompletionTokens
	s.Usage.TotalTokens += usage.TotalTokens
	s.UpdatedAt = time.Now()
}
