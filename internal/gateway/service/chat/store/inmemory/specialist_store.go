package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
)

// SpecialistStore keeps Specialist rows in process memory, preserving
// registration order for List.
type SpecialistStore struct {
	mu          sync.RWMutex
	specialists map[string]*entity.Specialist
	order       map[string]int
	seq         int
}

func NewSpecialistStore() *SpecialistStore {
	return &SpecialistStore{
		specialists: make(map[string]*entity.Specialist),
		order:       make(map[string]int),
	}
}

func (s *SpecialistStore) Create(_ context.Context, sp *entity.Specialist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[sp.ID] = s.seq
	s.specialists[sp.ID] = cloneSpecialist(sp)
	return nil
}

func (s *SpecialistStore) Get(_ context.Context, id string) (*entity.Specialist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.specialists[id]
	if !ok {
		return nil, errno.ErrSpecialistNotFound
	}
	return cloneSpecialist(sp), nil
}

func (s *SpecialistStore) GetByName(_ context.Context, name string) (*entity.Specialist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.specialists {
		if sp.Name == name {
			return cloneSpecialist(sp), nil
		}
	}
	return nil, errno.ErrSpecialistNotFound
}

func (s *SpecialistStore) Update(_ context.Context, sp *entity.Specialist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specialists[sp.ID]; !ok {
		return errno.ErrSpecialistNotFound
	}
	s.specialists[sp.ID] = cloneSpecialist(sp)
	return nil
}

func (s *SpecialistStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specialists[id]; !ok {
		return errno.ErrSpecialistNotFound
	}
	delete(s.specialists, id)
	delete(s.order, id)
	return nil
}

func (s *SpecialistStore) List(_ context.Context) ([]*entity.Specialist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sps := make([]*entity.Specialist, 0, len(s.specialists))
	for _, sp := range s.specialists {
		sps = append(sps, cloneSpecialist(sp))
	}
	sort.Slice(sps, func(i, j int) bool {
		return s.order[sps[i].ID] < s.order[sps[j].ID]
	})
	return sps, nil
}

func cloneSpecialist(in *entity.Specialist) *entity.Specialist {
	var out entity.Specialist
	_ = copier.CopyWithOption(&out, in, copier.Option{DeepCopy: true})
	return &out
}
