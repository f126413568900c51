package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
)

// --- Messages ---

func TestMessageStoreGetByTaskID(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()

	if err := s.Create(ctx, &entity.ChatMessage{ID: "m1", TaskID: "t1", SessionID: "sess"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	msg, err := s.GetByTaskID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("message = %q, want m1", msg.ID)
	}
	if _, err := s.GetByTaskID(ctx, "missing"); !errors.Is(err, errno.ErrTaskNotFound) {
		t.Errorf("unknown task = %v, want ErrTaskNotFound", err)
	}
}

func TestMessageStoreSnapshotIsolation(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()

	if err := s.Create(ctx, &entity.ChatMessage{ID: "m1", Content: "before", Logs: []string{"a"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	snap, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Mutating the snapshot must not reach the stored row.
	snap.Content = "after"
	snap.Logs[0] = "mutated"

	stored, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Content != "before" || stored.Logs[0] != "a" {
		t.Errorf("stored row leaked through a snapshot: %+v", stored)
	}
}

func TestMessageStoreListBySessionOrder(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		if err := s.Create(ctx, &entity.ChatMessage{ID: id, SessionID: "sess"}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if err := s.Create(ctx, &entity.ChatMessage{ID: "other", SessionID: "elsewhere"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgs, err := s.ListBySession(ctx, "sess")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d] = %q, want %q (insertion order)", i, msgs[i].ID, want)
		}
	}
}

func TestMessageStoreListStaleStreaming(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	cutoff := time.Now()

	stale := &entity.ChatMessage{ID: "stale", Status: entity.MessageStatusStreaming, LastUpdatedAt: cutoff.Add(-time.Minute)}
	fresh := &entity.ChatMessage{ID: "fresh", Status: entity.MessageStatusStreaming, LastUpdatedAt: cutoff.Add(time.Minute)}
	done := &entity.ChatMessage{ID: "done", Status: entity.MessageStatusCompleted, LastUpdatedAt: cutoff.Add(-time.Minute)}
	for _, msg := range []*entity.ChatMessage{stale, fresh, done} {
		if err := s.Create(ctx, msg); err != nil {
			t.Fatalf("Create %s: %v", msg.ID, err)
		}
	}

	got, err := s.ListStaleStreaming(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListStaleStreaming: %v", err)
	}
	if len(got) != 1 || got[0].ID != "stale" {
		t.Errorf("stale set = %v, want just the stale streaming row", got)
	}
}

// --- Tools ---

func TestToolStoreLookups(t *testing.T) {
	s := NewToolStore()
	ctx := context.Background()

	if err := s.Create(ctx, &entity.Tool{ID: "t1", Name: "BMI Calculator", Symbol: "calc_bmi"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byName, err := s.GetByName(ctx, "BMI Calculator")
	if err != nil || byName.ID != "t1" {
		t.Errorf("GetByName = %v, %v", byName, err)
	}
	bySymbol, err := s.GetBySymbol(ctx, "calc_bmi")
	if err != nil || bySymbol.ID != "t1" {
		t.Errorf("GetBySymbol = %v, %v", bySymbol, err)
	}
	if _, err := s.GetByName(ctx, "nope"); !errors.Is(err, errno.ErrToolNotFound) {
		t.Errorf("unknown name = %v, want ErrToolNotFound", err)
	}
	if _, err := s.GetBySymbol(ctx, "nope"); !errors.Is(err, errno.ErrToolNotFound) {
		t.Errorf("unknown symbol = %v, want ErrToolNotFound", err)
	}
}

func TestToolStoreDeleteAndListOrder(t *testing.T) {
	s := NewToolStore()
	ctx := context.Background()

	for i, id := range []string{"t1", "t2", "t3"} {
		if err := s.Create(ctx, &entity.Tool{ID: id, Name: id, Symbol: id}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if err := s.Delete(ctx, "t2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "t2"); !errors.Is(err, errno.ErrToolNotFound) {
		t.Errorf("second Delete = %v, want ErrToolNotFound", err)
	}

	tools, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tools) != 2 || tools[0].ID != "t1" || tools[1].ID != "t3" {
		t.Errorf("list = %v, want [t1 t3] in registration order", tools)
	}
}

// --- Specialists ---

func TestSpecialistStoreRegistrationOrder(t *testing.T) {
	s := NewSpecialistStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := s.Create(ctx, &entity.Specialist{ID: id, Name: id}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	sps, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make([]string, len(sps))
	for i, sp := range sps {
		got[i] = sp.ID
	}
	for i, want := range []string{"c", "a", "b"} {
		if got[i] != want {
			t.Fatalf("order = %v, want registration order [c a b]", got)
		}
	}
}

// --- Queue backend ---

func TestQueueStoreLifecycle(t *testing.T) {
	s := NewQueueStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"u1", "u2"} {
		unit := &entity.TaskUnit{TaskID: id, EnqueuedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Put(ctx, unit); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].TaskID != "u1" || pending[1].TaskID != "u2" {
		t.Errorf("pending = %v, want [u1 u2] in enqueue order", pending)
	}

	if err := s.Remove(ctx, "u1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "u1"); !errors.Is(err, errno.ErrTaskNotFound) {
		t.Errorf("second Remove = %v, want ErrTaskNotFound", err)
	}
	pending, err = s.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].TaskID != "u2" {
		t.Errorf("pending after remove = %v", pending)
	}
}
