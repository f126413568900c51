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

// QueueStore persists pending task units so unfinished work survives a
// process restart. Units are keyed by task ID and removed once the task
// reaches a terminal state.
type QueueStore struct {
	db *bolt.DB
}

// NewQueueStore creates a new QueueStore.
func NewQueueStore(db *DB) *QueueStore {
	return &QueueStore{db: db.Bolt()}
}

func (s *QueueStore) Put(_ context.Context, unit *entity.TaskUnit) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTaskQueue)
		data, err := json.Marshal(unit)
		if err != nil {
			return fmt.Errorf("failed to marshal task unit: %w", err)
		}
		return b.Put([]byte(unit.TaskID), data)
	})
}

func (s *QueueStore) Remove(_ context.Context, taskID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTaskQueue)
		if b.Get([]byte(taskID)) == nil {
			return errno.ErrTaskNotFound
		}
		return b.Delete([]byte(taskID))
	})
}

// ListPending returns all persisted task units in enqueue order.
func (s *QueueStore) ListPending(_ context.Context) ([]*entity.TaskUnit, error) {
	var units []*entity.TaskUnit
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTaskQueue)
		return b.ForEach(func(k, v []byte) error {
			var u entity.TaskUnit
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("failed to unmarshal task unit: %w", err)
			}
			units = append(units, &u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending task units: %w", err)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].EnqueuedAt.Before(units[j].EnqueuedAt)
	})
	return units, nil
}
