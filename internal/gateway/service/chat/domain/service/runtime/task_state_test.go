package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
)

func pendingMessage(t *testing.T, store *inmemory.MessageStore, taskID string) *entity.ChatMessage {
	t.Helper()
	msg := entity.NewPendingAssistantMessage("sess-1", taskID)
	msg.ID = "msg-" + taskID
	if err := store.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return msg
}

// --- Forward transitions ---

func TestTransitionToStreaming(t *testing.T) {
	store := inmemory.NewMessageStore()
	msg := pendingMessage(t, store, "t1")
	sm := NewTaskStateMachine(msg, store)

	if err := sm.TransitionToStreaming(context.Background()); err != nil {
		t.Fatalf("TransitionToStreaming: %v", err)
	}
	if msg.Status != entity.MessageStatusStreaming {
		t.Errorf("status = %q, want streaming", msg.Status)
	}
	if msg.StreamingStartedAt == nil {
		t.Error("StreamingStartedAt not set")
	}

	// Streaming again is rejected.
	if err := sm.TransitionToStreaming(context.Background()); !errors.Is(err, errno.ErrTaskAlreadyDone) {
		t.Errorf("second TransitionToStreaming = %v, want ErrTaskAlreadyDone", err)
	}
}

func TestTransitionToCompleted(t *testing.T) {
	store := inmemory.NewMessageStore()
	msg := pendingMessage(t, store, "t2")
	sm := NewTaskStateMachine(msg, store)

	if err := sm.TransitionToStreaming(context.Background()); err != nil {
		t.Fatalf("TransitionToStreaming: %v", err)
	}
	usage := &entity.TokenUsage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8}
	if err := sm.TransitionToCompleted(context.Background(), "final answer", usage); err != nil {
		t.Fatalf("TransitionToCompleted: %v", err)
	}

	stored, err := store.Get(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != entity.MessageStatusCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	if stored.Content != "final answer" {
		t.Errorf("content = %q", stored.Content)
	}
	if stored.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}
	if stored.Usage == nil || stored.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v, want total 8", stored.Usage)
	}

	// Terminal states reject further transitions.
	if err := sm.TransitionToError(context.Background(), "", "late"); !errors.Is(err, errno.ErrTaskAlreadyDone) {
		t.Errorf("TransitionToError after completed = %v, want ErrTaskAlreadyDone", err)
	}
}

func TestTransitionToErrorKeepsPartial(t *testing.T) {
	store := inmemory.NewMessageStore()
	msg := pendingMessage(t, store, "t3")
	sm := NewTaskStateMachine(msg, store)

	if err := sm.TransitionToError(context.Background(), "partial out", "deadline exceeded"); err != nil {
		t.Fatalf("TransitionToError: %v", err)
	}
	if msg.Status != entity.MessageStatusError {
		t.Errorf("status = %q, want error", msg.Status)
	}
	if msg.Content != "partial out" {
		t.Errorf("partial content dropped: %q", msg.Content)
	}
	if msg.ErrorMessage != "deadline exceeded" {
		t.Errorf("error message = %q", msg.ErrorMessage)
	}
	if msg.CompletedAt == nil {
		t.Error("CompletedAt not set on error terminal")
	}
}

// --- Retry ---

func TestPrepareRetry(t *testing.T) {
	store := inmemory.NewMessageStore()
	msg := pendingMessage(t, store, "t4")
	sm := NewTaskStateMachine(msg, store)

	// Retry of a non-terminal message is rejected.
	if err := sm.PrepareRetry(context.Background(), "t4-retry"); !errors.Is(err, errno.ErrMessageNotTerminal) {
		t.Errorf("PrepareRetry on pending = %v, want ErrMessageNotTerminal", err)
	}

	if err := sm.TransitionToError(context.Background(), "junk", "boom"); err != nil {
		t.Fatalf("TransitionToError: %v", err)
	}
	if err := sm.PrepareRetry(context.Background(), "t4-retry"); err != nil {
		t.Fatalf("PrepareRetry: %v", err)
	}

	if msg.Status != entity.MessageStatusPending {
		t.Errorf("status = %q, want pending", msg.Status)
	}
	if msg.TaskID != "t4-retry" {
		t.Errorf("task id = %q, want fresh handle", msg.TaskID)
	}
	if msg.Content != "" || msg.ErrorMessage != "" || msg.Usage != nil {
		t.Errorf("retry did not reset execution state: %+v", msg)
	}
	if msg.CompletedAt != nil || msg.StreamingStartedAt != nil {
		t.Error("retry did not clear timestamps")
	}

	// The old task handle no longer resolves.
	if _, err := store.GetByTaskID(context.Background(), "t4"); err == nil {
		t.Error("old task handle still resolves after retry")
	}
	if got, err := store.GetByTaskID(context.Background(), "t4-retry"); err != nil || got.ID != msg.ID {
		t.Errorf("new task handle does not resolve: %v", err)
	}
}
