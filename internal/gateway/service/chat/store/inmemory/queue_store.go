package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
)

// QueueStore is the in-memory queue backend. Pending units do not survive a
// restart; it exists for tests and the default zero-config setup.
type QueueStore struct {
	mu    sync.RWMutex
	units map[string]*entity.TaskUnit
}

// NewQueueStore creates an empty QueueStore.
func NewQueueStore() *QueueStore {
	return &QueueStore{units: make(map[string]*entity.TaskUnit)}
}

func (s *QueueStore) Put(_ context.Context, unit *entity.TaskUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *unit
	s.units[unit.TaskID] = &clone
	return nil
}

func (s *QueueStore) Remove(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[taskID]; !ok {
		return errno.ErrTaskNotFound
	}
	delete(s.units, taskID)
	return nil
}

// ListPending returns all persisted task units in enqueue order.
func (s *QueueStore) ListPending(_ context.Context) ([]*entity.TaskUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	units := make([]*entity.TaskUnit, 0, len(s.units))
	for _, u := range s.units {
		clone := *u
		units = append(units, &clone)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].EnqueuedAt.Before(units[j].EnqueuedAt)
	})
	return units, nil
}
