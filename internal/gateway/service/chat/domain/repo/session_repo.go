package repo

import (
	"context"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// SessionRepository defines the persistence interface for ChatSession rows.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *entity.ChatSession) error
	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*entity.ChatSession, error)
	// Update persists the full session row.
	Update(ctx context.Context, session *entity.ChatSession) error
	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error
	// List returns all sessions.
	List(ctx context.Context) ([]*entity.ChatSession, error)
}
