package repo

import (
	"context"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// ToolRepository defines the persistence interface for Tool definitions.
type ToolRepository interface {
	// Create stores a new tool.
	Create(ctx context.Context, tool *entity.Tool) error
	// Get retrieves a tool by ID.
	Get(ctx context.Context, id string) (*entity.Tool, error)
	// GetByName retrieves a tool by its unique name.
	GetByName(ctx context.Context, name string) (*entity.Tool, error)
	// GetBySymbol retrieves a tool by its unique symbol.
	GetBySymbol(ctx context.Context, symbol string) (*entity.Tool, error)
	// Update persists the full tool row.
	Update(ctx context.Context, tool *entity.Tool) error
	// Delete removes a tool by ID.
	Delete(ctx context.Context, id string) error
	// List returns all tools.
	List(ctx context.Context) ([]*entity.Tool, error)
}
