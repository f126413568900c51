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

type dispatcherFixture struct {
	sessions *inmemory.SessionStore
	messages *inmemory.MessageStore
	queue    *TaskQueue
	d        *Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	sessions := inmemory.NewSessionStore()
	messages := inmemory.NewMessageStore()
	queue := NewTaskQueue(inmemory.NewQueueStore(), QueueConfig{Capacity: 8, MaxRetries: 3, RetryBackoff: time.Millisecond})
	return &dispatcherFixture{
		sessions: sessions,
		messages: messages,
		queue:    queue,
		d:        NewDispatcher(sessions, messages, queue),
	}
}

func TestDispatchRejectsEmptyInput(t *testing.T) {
	f := newDispatcherFixture()
	if _, err := f.d.Dispatch(context.Background(), &DispatchRequest{}); !errors.Is(err, errno.ErrMissingInput) {
		t.Errorf("Dispatch with empty input = %v, want ErrMissingInput", err)
	}
}

func TestDispatchCreatesSessionAndMessages(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "what about aspirin?", Title: "meds"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Status != entity.MessageStatusPending {
		t.Errorf("result status = %q, want pending", res.Status)
	}
	if res.TaskID == "" || res.MessageID == "" || res.SessionID == "" {
		t.Errorf("result has empty handles: %+v", res)
	}

	// One user message, one pending assistant message.
	msgs, err := f.messages.ListBySession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != entity.RoleUser || msgs[0].Status != entity.MessageStatusCompleted {
		t.Errorf("user message: %+v", msgs[0])
	}
	if msgs[1].Role != entity.RoleAssistant || msgs[1].Status != entity.MessageStatusPending {
		t.Errorf("assistant message: %+v", msgs[1])
	}
	if msgs[1].TaskID != res.TaskID {
		t.Errorf("assistant task id %q != result %q", msgs[1].TaskID, res.TaskID)
	}

	// The created session carries the title.
	session, err := f.sessions.Get(ctx, res.SessionID)
	if err != nil || session.Title != "meds" {
		t.Errorf("session = %+v, err %v", session, err)
	}

	// Exactly one unit is enqueued.
	select {
	case u := <-f.queue.Units():
		if u.TaskID != res.TaskID || u.Input != "what about aspirin?" {
			t.Errorf("enqueued unit %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no unit enqueued")
	}
}

func TestDispatchIntoExistingSession(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()

	first, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	second, err := f.d.Dispatch(ctx, &DispatchRequest{SessionID: first.SessionID, Input: "again"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("second dispatch created session %q, want %q", second.SessionID, first.SessionID)
	}
	if second.TaskID == first.TaskID {
		t.Error("task handles must be unique per dispatch")
	}

	msgs, _ := f.messages.ListBySession(ctx, first.SessionID)
	if len(msgs) != 4 {
		t.Errorf("got %d messages, want 4", len(msgs))
	}
}

func TestDispatchUnknownSession(t *testing.T) {
	f := newDispatcherFixture()
	if _, err := f.d.Dispatch(context.Background(), &DispatchRequest{SessionID: "nope", Input: "x"}); err == nil {
		t.Error("Dispatch with unknown session: expected error")
	}
}

// --- Retry ---

func TestRetryTerminalMessage(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "original question"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	<-f.queue.Units()

	// Fail the assistant turn terminally.
	msg, err := f.messages.Get(ctx, res.MessageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	sm := NewTaskStateMachine(msg, f.messages)
	if err := sm.TransitionToError(ctx, "", "transient failure"); err != nil {
		t.Fatalf("TransitionToError: %v", err)
	}

	retried, err := f.d.Retry(ctx, res.MessageID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.TaskID == res.TaskID {
		t.Error("retry must allocate a fresh task handle")
	}
	if retried.MessageID != res.MessageID {
		t.Errorf("retry switched messages: %q -> %q", res.MessageID, retried.MessageID)
	}

	// The retried unit re-runs the original user input.
	select {
	case u := <-f.queue.Units():
		if u.Input != "original question" {
			t.Errorf("retried unit input = %q", u.Input)
		}
		if u.TaskID != retried.TaskID {
			t.Errorf("retried unit task = %q, want %q", u.TaskID, retried.TaskID)
		}
	case <-time.After(time.Second):
		t.Fatal("retry enqueued nothing")
	}
}

func TestRetryNonTerminalRejected(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "hi"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := f.d.Retry(ctx, res.MessageID); !errors.Is(err, errno.ErrMessageNotTerminal) {
		t.Errorf("Retry on pending message = %v, want ErrMessageNotTerminal", err)
	}
}
