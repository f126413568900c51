package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// QueueStore persists pending task units across restarts.
type QueueStore struct {
	db *sql.DB
}

// NewQueueStore creates a new QueueStore.
func NewQueueStore(db *DB) *QueueStore {
	return &QueueStore{db: db.SQL()}
}

func (s *QueueStore) Put(ctx context.Context, unit *entity.TaskUnit) error {
	body, err := json.MarshalString(unit)
	if err != nil {
		return fmt.Errorf("failed to marshal task unit: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_queue (task_id, enqueued_at, body) VALUES (?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET body = excluded.body`,
		unit.TaskID, unit.EnqueuedAt, body)
	if err != nil {
		return fmt.Errorf("failed to persist task unit: %w", err)
	}
	return nil
}

func (s *QueueStore) Remove(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_queue WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to remove task unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return errno.ErrTaskNotFound
	}
	return nil
}

// ListPending returns all persisted task units in enqueue order.
func (s *QueueStore) ListPending(ctx context.Context) ([]*entity.TaskUnit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM task_queue ORDER BY enqueued_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending task units: %w", err)
	}
	defer rows.Close()

	var units []*entity.TaskUnit
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan task unit row: %w", err)
		}
		var u entity.TaskUnit
		if err := json.UnmarshalString(body, &u); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task unit: %w", err)
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}
