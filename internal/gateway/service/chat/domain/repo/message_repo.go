package repo

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// MessageRepository defines the persistence interface for ChatMessage rows.
//
// Single-writer discipline: the worker owning a non-terminal message is the
// only caller of Update for it; everyone else reads snapshots.
type MessageRepository interface {
	// Create stores a new message.
	Create(ctx context.Context, msg *entity.ChatMessage) error
	// Get retrieves a message by ID.
	Get(ctx context.Context, id string) (*entity.ChatMessage, error)
	// GetByTaskID retrieves the message owning the given task handle.
	GetByTaskID(ctx context.Context, taskID string) (*entity.ChatMessage, error)
	// Update persists the full message row.
	Update(ctx context.Context, msg *entity.ChatMessage) error
	// ListBySession returns all messages of a session in creation order.
	ListBySession(ctx context.Context, sessionID string) ([]*entity.ChatMessage, error)
	// ListStaleStreaming returns messages still marked streaming whose
	// last update is older than the cutoff. Used by the reconciler.
	ListStaleStreaming(ctx context.Context, cutoff time.Time) ([]*entity.ChatMessage, error)
}
