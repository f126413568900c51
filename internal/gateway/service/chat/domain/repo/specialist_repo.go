package repo

import (
	"context"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// SpecialistRepository defines the persistence interface for Specialist rows.
//
// List must preserve registration (creation) order: the decision context
// shown to the primary agent enumerates specialists in that order.
type SpecialistRepository interface {
	// Create stores a new specialist.
	Create(ctx context.Context, sp *entity.Specialist) error
	// Get retrieves a specialist by ID.
	Get(ctx context.Context, id string) (*entity.Specialist, error)
	// GetByName retrieves a specialist by its unique name.
	GetByName(ctx context.Context, name string) (*entity.Specialist, error)
	// Update persists the full specialist row.
	Update(ctx context.Context, sp *entity.Specialist) error
	// Delete removes a specialist by ID.
	Delete(ctx context.Context, id string) error
	// List returns all specialists in registration order.
	List(ctx context.Context) ([]*entity.Specialist, error)
}
