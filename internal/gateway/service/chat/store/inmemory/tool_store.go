package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
)

// ToolStore keeps Tool definitions in process memory.
//
// Reads return deep copies: a worker that captured a tool snapshot at
// invocation time must not observe administrative edits made mid-turn.
type ToolStore struct {
	mu    sync.RWMutex
	tools map[string]*entity.Tool
	order map[string]int
	seq   int
}

func NewToolStore() *ToolStore {
	return &ToolStore{
		tools: make(map[string]*entity.Tool),
		order: make(map[string]int),
	}
}

func (s *ToolStore) Create(_ context.Context, tool *entity.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[tool.ID] = s.seq
	s.tools[tool.ID] = cloneTool(tool)
	return nil
}

func (s *ToolStore) Get(_ context.Context, id string) (*entity.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tool, ok := s.tools[id]
	if !ok {
		return nil, errno.ErrToolNotFound
	}
	return cloneTool(tool), nil
}

func (s *ToolStore) GetByName(_ context.Context, name string) (*entity.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tool := range s.tools {
		if tool.Name == name {
			return cloneTool(tool), nil
		}
	}
	return nil, errno.ErrToolNotFound
}

func (s *ToolStore) GetBySymbol(_ context.Context, symbol string) (*entity.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tool := range s.tools {
		if tool.Symbol == symbol {
			return cloneTool(tool), nil
		}
	}
	return nil, errno.ErrToolNotFound
}

func (s *ToolStore) Update(_ context.Context, tool *entity.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[tool.ID]; !ok {
		return errno.ErrToolNotFound
	}
	s.tools[tool.ID] = cloneTool(tool)
	return nil
}

func (s *ToolStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[id]; !ok {
		return errno.ErrToolNotFound
	}
	delete(s.tools, id)
	delete(s.order, id)
	return nil
}

func (s *ToolStore) List(_ context.Context) ([]*entity.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]*entity.Tool, 0, len(s.tools))
	for _, tool := range s.tools {
		tools = append(tools, cloneTool(tool))
	}
	sort.Slice(tools, func(i, j int) bool {
		return s.order[tools[i].ID] < s.order[tools[j].ID]
	})
	return tools, nil
}

func cloneTool(in *entity.Tool) *entity.Tool {
	var out entity.Tool
	_ = copier.CopyWithOption(&out, in, copier.Option{DeepCopy: true})
	return &out
}
