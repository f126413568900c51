package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/logger"
	"github.com/clinicore/clinicore/pkg/utils/safego"
)

// QueueBackend persists pending task units across restarts.
type QueueBackend interface {
	Put(ctx context.Context, unit *entity.TaskUnit) error
	Remove(ctx context.Context, taskID string) error
	ListPending(ctx context.Context) ([]*entity.TaskUnit, error)
}

// QueueConfig bounds the queue's delivery behavior. Immutable after startup.
type QueueConfig struct {
	// Capacity is the in-memory buffer size. Enqueue fails fast when full.
	Capacity int
	// MaxRetries caps redeliveries of one unit.
	MaxRetries int
	// RetryBackoff is the fixed delay before a redelivery.
	RetryBackoff time.Duration
}

// DefaultQueueConfig returns the standard bounds.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Capacity:     1024,
		MaxRetries:   3,
		RetryBackoff: 2 * time.Second,
	}
}

func (c QueueConfig) withDefaults() QueueConfig {
	d := DefaultQueueConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	return c
}

// TaskQueue is a durable in-process work queue. Every accepted unit is
// persisted before it becomes visible to workers; Ack removes it. A failed
// delivery is retried with fixed backoff up to the bounded count.
type TaskQueue struct {
	cfg     QueueConfig
	backend QueueBackend
	units   chan *entity.TaskUnit

	mu     sync.Mutex
	closed bool
}

// NewTaskQueue creates a queue over the given backend.
func NewTaskQueue(backend QueueBackend, cfg QueueConfig) *TaskQueue {
	cfg = cfg.withDefaults()
	return &TaskQueue{
		cfg:     cfg,
		backend: backend,
		units:   make(chan *entity.TaskUnit, cfg.Capacity),
	}
}

// Recover reloads units that were pending at the last shutdown.
func (q *TaskQueue) Recover(ctx context.Context) error {
	units, err := q.backend.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, u := range units {
		select {
		case q.units <- u:
		default:
			logger.WarnX(pkg.ModuleName, "[TaskQueue] recovery overflow, task %s left persisted", u.TaskID)
		}
	}
	if len(units) > 0 {
		logger.InfoX(pkg.ModuleName, "[TaskQueue] recovered %d pending tasks", len(units))
	}
	return nil
}

// Enqueue persists the unit and makes it visible to workers. It never blocks
// on execution: a full buffer fails fast.
func (q *TaskQueue) Enqueue(ctx context.Context, unit *entity.TaskUnit) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errno.ErrQueueClosed
	}
	q.mu.Unlock()

	if err := q.backend.Put(ctx, unit); err != nil {
		return err
	}
	select {
	case q.units <- unit:
		return nil
	default:
		// Leave the unit persisted; it is picked up on the next recovery.
		return errno.ErrQueueFull
	}
}

// Units is the worker-facing delivery channel.
func (q *TaskQueue) Units() <-chan *entity.TaskUnit {
	return q.units
}

// Ack marks the unit done and removes its durable copy.
func (q *TaskQueue) Ack(ctx context.Context, taskID string) {
	if err := q.backend.Remove(ctx, taskID); err != nil {
		logger.WarnX(pkg.ModuleName, "[TaskQueue] failed to ack task %s: %v", taskID, err)
	}
}

// Nack reports a failed delivery. If the retry budget allows, the unit is
// redelivered after the fixed backoff and Nack returns true; otherwise the
// durable copy is removed and false is returned, leaving the terminal
// failure to the caller.
func (q *TaskQueue) Nack(ctx context.Context, unit *entity.TaskUnit) bool {
	unit.Attempts++
	if unit.Attempts >= q.cfg.MaxRetries {
		logger.WarnX(pkg.ModuleName, "[TaskQueue] task %s exhausted %d attempts", unit.TaskID, unit.Attempts)
		q.Ack(ctx, unit.TaskID)
		return false
	}
	if err := q.backend.Put(ctx, unit); err != nil {
		logger.WarnX(pkg.ModuleName, "[TaskQueue] failed to persist retry of task %s: %v", unit.TaskID, err)
	}
	safego.Go(ctx, func() {
		timer := time.NewTimer(q.cfg.RetryBackoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}
		select {
		case q.units <- unit:
		default:
			logger.WarnX(pkg.ModuleName, "[TaskQueue] retry overflow, task %s left persisted", unit.TaskID)
		}
	})
	logger.InfoX(pkg.ModuleName, "[TaskQueue] task %s scheduled for retry %d/%d", unit.TaskID, unit.Attempts, q.cfg.MaxRetries)
	return true
}

// Close stops accepting new units. Workers drain what is already buffered.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.units)
}
