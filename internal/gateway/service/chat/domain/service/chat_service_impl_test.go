package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service/runtime"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
)

type serviceFixture struct {
	svc      ChatService
	gate     *ToolGate
	messages *inmemory.MessageStore
	sessions *inmemory.SessionStore
	relay    *runtime.Relay
	queue    *runtime.TaskQueue
}

func newServiceFixture() *serviceFixture {
	messages := inmemory.NewMessageStore()
	sessions := inmemory.NewSessionStore()
	relay := runtime.NewRelay()
	queue := runtime.NewTaskQueue(inmemory.NewQueueStore(), runtime.QueueConfig{Capacity: 8})
	dispatcher := runtime.NewDispatcher(sessions, messages, queue)
	gate := NewToolGate(inmemory.NewToolStore())
	return &serviceFixture{
		svc:      NewChatService(dispatcher, relay, messages, sessions, gate, toolexec.New(nil)),
		gate:     gate,
		messages: messages,
		sessions: sessions,
		relay:    relay,
		queue:    queue,
	}
}

func (f *serviceFixture) terminalMessage(t *testing.T, taskID, content string, status entity.MessageStatus) *entity.ChatMessage {
	t.Helper()
	now := time.Now()
	msg := &entity.ChatMessage{
		ID:            "m-" + taskID,
		SessionID:     "sess-1",
		Role:          entity.RoleAssistant,
		Content:       content,
		Status:        status,
		TaskID:        taskID,
		CompletedAt:   &now,
		LastUpdatedAt: now,
		CreatedAt:     now,
	}
	if err := f.messages.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return msg
}

// --- Polling ---

func TestPollTaskPending(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	res, err := f.svc.Dispatch(ctx, &runtime.DispatchRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	view, err := f.svc.PollTask(ctx, res.TaskID)
	if err != nil {
		t.Fatalf("PollTask: %v", err)
	}
	if view.Status != entity.MessageStatusPending {
		t.Errorf("status = %q, want pending", view.Status)
	}
	if view.Result != "" {
		t.Errorf("pending poll carries a result: %q", view.Result)
	}
}

func TestPollTaskCompletedCarriesResult(t *testing.T) {
	f := newServiceFixture()
	f.terminalMessage(t, "t1", "the full answer", entity.MessageStatusCompleted)

	view, err := f.svc.PollTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("PollTask: %v", err)
	}
	if view.Result != "the full answer" {
		t.Errorf("result = %q", view.Result)
	}
	if view.ContentPreview != "" {
		t.Errorf("completed poll also carries a preview: %q", view.ContentPreview)
	}
}

func TestPollTaskPreviewTruncated(t *testing.T) {
	f := newServiceFixture()
	long := strings.Repeat("x", 500)
	msg := f.terminalMessage(t, "t2", long, entity.MessageStatusError)
	msg.ErrorMessage = "boom"
	if err := f.messages.Update(context.Background(), msg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	view, err := f.svc.PollTask(context.Background(), "t2")
	if err != nil {
		t.Fatalf("PollTask: %v", err)
	}
	if len(view.ContentPreview) != 200 {
		t.Errorf("preview length = %d, want 200", len(view.ContentPreview))
	}
	if view.Error != "boom" {
		t.Errorf("error = %q", view.Error)
	}
}

func TestPollTaskUnknown(t *testing.T) {
	f := newServiceFixture()
	if _, err := f.svc.PollTask(context.Background(), "missing"); err == nil {
		t.Error("PollTask with unknown task: expected error")
	}
}

// --- Streaming ---

// A terminal message streams from its persisted row, which also covers
// resuming after a restart emptied the relay.
func TestStreamTaskTerminalReplay(t *testing.T) {
	f := newServiceFixture()
	f.terminalMessage(t, "t3", "persisted answer", entity.MessageStatusCompleted)

	sr, err := f.svc.StreamTask(context.Background(), "t3")
	if err != nil {
		t.Fatalf("StreamTask: %v", err)
	}
	defer sr.Close()

	first, err := sr.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if first.Type != entity.EventDelta || first.Delta != "persisted answer" {
		t.Errorf("first event = %+v", first)
	}
	second, err := sr.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if second.Type != entity.EventDone || second.Status != entity.MessageStatusCompleted {
		t.Errorf("second event = %+v", second)
	}
	if _, err := sr.Recv(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestStreamTaskErrorReplayCarriesDetail(t *testing.T) {
	f := newServiceFixture()
	msg := f.terminalMessage(t, "t4", "", entity.MessageStatusError)
	msg.ErrorMessage = "deadline exceeded"
	if err := f.messages.Update(context.Background(), msg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sr, err := f.svc.StreamTask(context.Background(), "t4")
	if err != nil {
		t.Fatalf("StreamTask: %v", err)
	}
	defer sr.Close()

	ev, err := sr.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if ev.Type != entity.EventDone || ev.Error != "deadline exceeded" {
		t.Errorf("terminal event = %+v", ev)
	}
}

// --- Session deletion drops retained streams ---

func TestDeleteSessionForgetsStreams(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	res, err := f.svc.Dispatch(ctx, &runtime.DispatchRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	f.relay.Publish(res.MessageID, &entity.StreamEvent{Type: entity.EventDelta, Delta: "x"})

	if err := f.svc.DeleteSession(ctx, res.SessionID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := f.svc.GetSession(ctx, res.SessionID); err == nil {
		t.Error("session survived deletion")
	}
}

// --- Tool testing feeds the gate ---

func TestTestToolRecordsOutcome(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	created, err := f.gate.Create(ctx, &entity.Tool{
		Name:        "Drug Lookup",
		Symbol:      "drug_lookup",
		Type:        entity.ToolTypeAPI,
		APIEndpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	env, tool, err := f.svc.TestTool(ctx, created.ID, nil)
	if err != nil {
		t.Fatalf("TestTool: %v", err)
	}
	if env.Status != toolexec.StatusSuccess {
		t.Errorf("envelope = %+v", env)
	}
	if !tool.TestPassed {
		t.Error("passed test not recorded on the tool")
	}
}

func TestTestToolFailureRecorded(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	created, err := f.gate.Create(ctx, &entity.Tool{
		Name:        "Drug Lookup",
		Symbol:      "drug_lookup",
		Type:        entity.ToolTypeAPI,
		APIEndpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	env, tool, err := f.svc.TestTool(ctx, created.ID, nil)
	if err != nil {
		t.Fatalf("TestTool: %v", err)
	}
	if env.Status != toolexec.StatusError {
		t.Errorf("envelope = %+v", env)
	}
	if tool.TestPassed {
		t.Error("failed test recorded as passed")
	}
}
