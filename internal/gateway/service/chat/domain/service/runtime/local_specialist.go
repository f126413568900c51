package runtime

import (
	"context"
	"fmt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// LocalSpecialistRuntime is the built-in model-free specialist backend. It
// acknowledges the question under the specialist's role so the coordinator
// and report formatting stay exercised without a model. A model-backed
// runtime replaces this through the SpecialistRuntime seam.
type LocalSpecialistRuntime struct{}

// NewLocalSpecialistRuntime creates a LocalSpecialistRuntime.
func NewLocalSpecialistRuntime() *LocalSpecialistRuntime {
	return &LocalSpecialistRuntime{}
}

func (r *LocalSpecialistRuntime) Consult(ctx context.Context, sp *entity.Specialist, message string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return fmt.Sprintf("(%s) acknowledged the question: %s. No language model is configured for specialist runtimes.", sp.Role, message), nil
}
