package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
)

func newUnit(taskID string) *entity.TaskUnit {
	return &entity.TaskUnit{
		TaskID:     taskID,
		MessageID:  "msg-" + taskID,
		SessionID:  "sess-1",
		Input:      "hello",
		EnqueuedAt: time.Now(),
	}
}

func TestQueueEnqueueDeliverAck(t *testing.T) {
	backend := inmemory.NewQueueStore()
	q := NewTaskQueue(backend, QueueConfig{Capacity: 4, MaxRetries: 3, RetryBackoff: time.Millisecond})
	ctx := context.Background()

	if err := q.Enqueue(ctx, newUnit("t1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The unit is durable until acked.
	pending, err := backend.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPending = %d units, err %v; want 1", len(pending), err)
	}

	select {
	case u := <-q.Units():
		if u.TaskID != "t1" {
			t.Errorf("delivered task %q, want t1", u.TaskID)
		}
	case <-time.After(time.Second):
		t.Fatal("unit never delivered")
	}

	q.Ack(ctx, "t1")
	pending, _ = backend.ListPending(ctx)
	if len(pending) != 0 {
		t.Errorf("durable copy survived ack: %d units", len(pending))
	}
}

func TestQueueNackBoundedRetries(t *testing.T) {
	backend := inmemory.NewQueueStore()
	q := NewTaskQueue(backend, QueueConfig{Capacity: 4, MaxRetries: 3, RetryBackoff: time.Millisecond})
	ctx := context.Background()

	unit := newUnit("t2")
	if err := q.Enqueue(ctx, unit); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-q.Units()

	// Attempts 1 and 2 are redelivered; the third exhausts the budget.
	if !q.Nack(ctx, unit) {
		t.Fatal("Nack attempt 1: expected redelivery")
	}
	if !q.Nack(ctx, unit) {
		t.Fatal("Nack attempt 2: expected redelivery")
	}
	if q.Nack(ctx, unit) {
		t.Fatal("Nack attempt 3: expected exhaustion")
	}
	if unit.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", unit.Attempts)
	}

	// Exhaustion removes the durable copy.
	pending, _ := backend.ListPending(ctx)
	if len(pending) != 0 {
		t.Errorf("durable copy survived exhaustion: %d units", len(pending))
	}
}

func TestQueueNackRedelivers(t *testing.T) {
	backend := inmemory.NewQueueStore()
	q := NewTaskQueue(backend, QueueConfig{Capacity: 4, MaxRetries: 3, RetryBackoff: time.Millisecond})
	ctx := context.Background()

	unit := newUnit("t3")
	if err := q.Enqueue(ctx, unit); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-q.Units()

	if !q.Nack(ctx, unit) {
		t.Fatal("Nack: expected redelivery")
	}
	select {
	case u := <-q.Units():
		if u.TaskID != "t3" || u.Attempts != 1 {
			t.Errorf("redelivered %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("redelivery never arrived")
	}
}

func TestQueueRecover(t *testing.T) {
	backend := inmemory.NewQueueStore()
	ctx := context.Background()

	// Units persisted by a previous process.
	if err := backend.Put(ctx, newUnit("t4")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := backend.Put(ctx, newUnit("t5")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	q := NewTaskQueue(backend, QueueConfig{Capacity: 4, MaxRetries: 3, RetryBackoff: time.Millisecond})
	if err := q.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case u := <-q.Units():
			got[u.TaskID] = true
		case <-time.After(time.Second):
			t.Fatal("recovered unit never delivered")
		}
	}
	if !got["t4"] || !got["t5"] {
		t.Errorf("recovered units = %v", got)
	}
}

func TestQueueClosedRejectsEnqueue(t *testing.T) {
	q := NewTaskQueue(inmemory.NewQueueStore(), QueueConfig{Capacity: 4})
	q.Close()
	if err := q.Enqueue(context.Background(), newUnit("t6")); !errors.Is(err, errno.ErrQueueClosed) {
		t.Errorf("Enqueue on closed queue = %v, want ErrQueueClosed", err)
	}
}

func TestQueueFullRejectsEnqueue(t *testing.T) {
	backend := inmemory.NewQueueStore()
	q := NewTaskQueue(backend, QueueConfig{Capacity: 1})
	ctx := context.Background()

	if err := q.Enqueue(ctx, newUnit("t7")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	err := q.Enqueue(ctx, newUnit("t8"))
	if !errors.Is(err, errno.ErrQueueFull) {
		t.Fatalf("Enqueue on full queue = %v, want ErrQueueFull", err)
	}
	if errors.Is(err, errno.ErrQueueClosed) {
		t.Error("full queue must not report as closed")
	}

	// The overflow unit stays persisted for the next recovery.
	pending, _ := backend.ListPending(ctx)
	if len(pending) != 2 {
		t.Errorf("persisted units = %d, want 2", len(pending))
	}
}
