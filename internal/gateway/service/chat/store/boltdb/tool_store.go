package boltdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// ToolStore is a BoltDB-backed store for tool definitions.
type ToolStore struct {
	db *bolt.DB
}

// NewToolStore creates a new ToolStore.
func NewToolStore(db *DB) *ToolStore {
	return &ToolStore{db: db.Bolt()}
}

func (s *ToolStore) Create(_ context.Context, tool *entity.Tool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		data, err := json.Marshal(tool)
		if err != nil {
			return fmt.Errorf("failed to marshal tool: %w", err)
		}
		return b.Put([]byte(tool.ID), data)
	})
}

func (s *ToolStore) Get(_ context.Context, id string) (*entity.Tool, error) {
	var tool entity.Tool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		data := b.Get([]byte(id))
		if data == nil {
			return errno.ErrToolNotFound
		}
		return json.Unmarshal(data, &tool)
	})
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

func (s *ToolStore) GetByName(ctx context.Context, name string) (*entity.Tool, error) {
	return s.findFirst(func(t *entity.Tool) bool { return t.Name == name })
}

func (s *ToolStore) GetBySymbol(ctx context.Context, symbol string) (*entity.Tool, error) {
	return s.findFirst(func(t *entity.Tool) bool { return t.Symbol == symbol })
}

func (s *ToolStore) findFirst(match func(*entity.Tool) bool) (*entity.Tool, error) {
	var found *entity.Tool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		return b.ForEach(func(k, v []byte) error {
			var t entity.Tool
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("failed to unmarshal tool: %w", err)
			}
			if found == nil && match(&t) {
				found = &t
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errno.ErrToolNotFound
	}
	return found, nil
}

func (s *ToolStore) Update(_ context.Context, tool *entity.Tool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		if b.Get([]byte(tool.ID)) == nil {
			return errno.ErrToolNotFound
		}
		data, err := json.Marshal(tool)
		if err != nil {
			return fmt.Errorf("failed to marshal tool: %w", err)
		}
		return b.Put([]byte(tool.ID), data)
	})
}

func (s *ToolStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		if b.Get([]byte(id)) == nil {
			return errno.ErrToolNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *ToolStore) List(_ context.Context) ([]*entity.Tool, error) {
	var tools []*entity.Tool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketToolStore)
		return b.ForEach(func(k, v []byte) error {
			var t entity.Tool
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("failed to unmarshal tool: %w", err)
			}
			tools = append(tools, &t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].CreatedAt.Before(tools[j].CreatedAt)
	})
	return tools, nil
}
