package runtime

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
)

type poolFixture struct {
	sessions *inmemory.SessionStore
	messages *inmemory.MessageStore
	relay    *Relay
	queue    *TaskQueue
	d        *Dispatcher
	pool     *Pool
	spStore  *inmemory.SpecialistStore
	tools    *inmemory.ToolStore
}

func newPoolFixture(runner TurnRunner) *poolFixture {
	sessions := inmemory.NewSessionStore()
	messages := inmemory.NewMessageStore()
	spStore := inmemory.NewSpecialistStore()
	tools := inmemory.NewToolStore()
	relay := NewRelay()
	queue := NewTaskQueue(inmemory.NewQueueStore(), QueueConfig{Capacity: 8, MaxRetries: 3, RetryBackoff: time.Millisecond})
	coordinator := NewCoordinator(NewLocalSpecialistRuntime(), spStore, time.Second)
	invoker := NewToolInvoker(tools, toolexec.New(nil))
	if runner == nil {
		runner = NewLocalTurnRunner()
	}
	pool := NewPool(
		PoolConfig{Concurrency: 1, SoftDeadline: 2 * time.Second, HardDeadline: 3 * time.Second},
		queue, messages, sessions, relay, runner, coordinator, invoker,
	)
	return &poolFixture{
		sessions: sessions,
		messages: messages,
		relay:    relay,
		queue:    queue,
		d:        NewDispatcher(sessions, messages, queue),
		pool:     pool,
		spStore:  spStore,
		tools:    tools,
	}
}

func (f *poolFixture) awaitTerminal(t *testing.T, messageID string) *entity.ChatMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := f.messages.Get(context.Background(), messageID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if msg.Status.IsTerminal() {
			return msg
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("message never reached a terminal state")
	return nil
}

func TestPoolExecutesTurnToCompletion(t *testing.T) {
	f := newPoolFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "hello there"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg := f.awaitTerminal(t, res.MessageID)
	if msg.Status != entity.MessageStatusCompleted {
		t.Fatalf("status = %q (%s), want completed", msg.Status, msg.ErrorMessage)
	}
	if !strings.Contains(msg.Content, "I received your message") {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.Usage == nil || msg.Usage.TotalTokens == 0 {
		t.Errorf("usage not recorded: %+v", msg.Usage)
	}
	if msg.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// Session usage is accumulated from the finished turn.
	session, err := f.sessions.Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Usage == nil || session.Usage.TotalTokens != msg.Usage.TotalTokens {
		t.Errorf("session usage = %+v, want %+v", session.Usage, msg.Usage)
	}

	// The full event log is replayable after completion.
	events := drain(t, f.relay.Subscribe(ctx, res.MessageID))
	if len(events) < 2 {
		t.Fatalf("got %d events, want status + deltas + done", len(events))
	}
	if events[0].Type != entity.EventStatus {
		t.Errorf("first event = %q, want status", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != entity.EventDone || last.Status != entity.MessageStatusCompleted {
		t.Errorf("last event = %+v", last)
	}
}

func TestPoolConsultCommand(t *testing.T) {
	f := newPoolFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.spStore.Create(ctx, &entity.Specialist{
		ID:      "sp1",
		Name:    "Cardio",
		Role:    "cardiology",
		Enabled: true,
	}); err != nil {
		t.Fatalf("Create specialist: %v", err)
	}
	f.pool.Start(ctx)

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "/consult Cardio is this QT interval concerning?"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg := f.awaitTerminal(t, res.MessageID)
	if msg.Status != entity.MessageStatusCompleted {
		t.Fatalf("status = %q (%s), want completed", msg.Status, msg.ErrorMessage)
	}
	if !strings.Contains(msg.Content, "REPORT FROM SPECIALIST **Cardio**") {
		t.Errorf("content = %q, want a specialist report", msg.Content)
	}
	// The consultation is logged on the message.
	found := false
	for _, l := range msg.Logs {
		if strings.Contains(l, "Cardio") {
			found = true
		}
	}
	if !found {
		t.Errorf("consult not logged: %v", msg.Logs)
	}
}

func TestPoolToolCommandDisabledTool(t *testing.T) {
	f := newPoolFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.tools.Create(ctx, &entity.Tool{
		ID:     "tool1",
		Name:   "BMI Calculator",
		Symbol: "calc_bmi",
		Type:   entity.ToolTypeFunction,
		Code:   "def run(): return 1",
		// Untested, therefore disabled.
	}); err != nil {
		t.Fatalf("Create tool: %v", err)
	}
	f.pool.Start(ctx)

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: `/tool calc_bmi {"weight": 70}`})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg := f.awaitTerminal(t, res.MessageID)
	if msg.Status != entity.MessageStatusCompleted {
		t.Fatalf("status = %q, want completed (tool failure never aborts the turn)", msg.Status)
	}
	if !strings.Contains(msg.Content, "tool is disabled: calc_bmi") {
		t.Errorf("content = %q, want disabled-tool failure", msg.Content)
	}
}

// failingRunner always errors after emitting a partial delta.
type failingRunner struct{}

func (failingRunner) Run(_ context.Context, _ *TurnContext, emit func(*entity.StreamEvent)) (*TurnResult, error) {
	emit(&entity.StreamEvent{Type: entity.EventDelta, Delta: "partial "})
	return nil, context.DeadlineExceeded
}

func TestPoolRunnerErrorKeepsPartial(t *testing.T) {
	f := newPoolFixture(failingRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "doomed"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg := f.awaitTerminal(t, res.MessageID)
	if msg.Status != entity.MessageStatusError {
		t.Fatalf("status = %q, want error", msg.Status)
	}
	if msg.Content != "partial " {
		t.Errorf("partial content = %q", msg.Content)
	}
	if msg.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
}

// chattyRunner keeps emitting deltas until its context is canceled.
type chattyRunner struct{}

func (chattyRunner) Run(ctx context.Context, _ *TurnContext, emit func(*entity.StreamEvent)) (*TurnResult, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			emit(&entity.StreamEvent{Type: entity.EventDelta, Delta: "tick "})
			time.Sleep(time.Millisecond)
		}
	}
}

func TestPoolSoftDeadlineFreezesPartial(t *testing.T) {
	sessions := inmemory.NewSessionStore()
	messages := inmemory.NewMessageStore()
	relay := NewRelay()
	queue := NewTaskQueue(inmemory.NewQueueStore(), QueueConfig{Capacity: 8, MaxRetries: 3, RetryBackoff: time.Millisecond})
	coordinator := NewCoordinator(NewLocalSpecialistRuntime(), inmemory.NewSpecialistStore(), time.Second)
	invoker := NewToolInvoker(inmemory.NewToolStore(), toolexec.New(nil))
	f := &poolFixture{
		sessions: sessions,
		messages: messages,
		relay:    relay,
		queue:    queue,
		d:        NewDispatcher(sessions, messages, queue),
		pool: NewPool(
			PoolConfig{Concurrency: 1, SoftDeadline: 30 * time.Millisecond, HardDeadline: time.Second},
			queue, messages, sessions, relay, chattyRunner{}, coordinator, invoker,
		),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "never stops"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg := f.awaitTerminal(t, res.MessageID)
	if msg.Status != entity.MessageStatusError {
		t.Fatalf("status = %q, want error", msg.Status)
	}
	if !strings.Contains(msg.ErrorMessage, "deadline exceeded") {
		t.Errorf("error = %q, want deadline wind-down", msg.ErrorMessage)
	}
	if msg.Content == "" {
		t.Error("partial content was discarded")
	}

	// The runner keeps emitting past the wind-down; the frozen partial must
	// not move.
	frozen := msg.Content
	time.Sleep(50 * time.Millisecond)
	again, err := f.messages.Get(ctx, res.MessageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Content != frozen {
		t.Errorf("content moved after wind-down: %d -> %d bytes", len(frozen), len(again.Content))
	}
	if again.Status != entity.MessageStatusError {
		t.Errorf("status moved after wind-down: %q", again.Status)
	}
}

func TestPoolSkipsSupersededUnit(t *testing.T) {
	f := newPoolFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := f.d.Dispatch(ctx, &DispatchRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Retry before any worker runs: the original unit is superseded.
	msg, _ := f.messages.Get(ctx, res.MessageID)
	sm := NewTaskStateMachine(msg, f.messages)
	if err := sm.TransitionToError(ctx, "", "simulated"); err != nil {
		t.Fatalf("TransitionToError: %v", err)
	}
	retried, err := f.d.Retry(ctx, res.MessageID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}

	f.pool.Start(ctx)
	final := f.awaitTerminal(t, res.MessageID)
	if final.TaskID != retried.TaskID {
		t.Errorf("final task = %q, want the retried handle %q", final.TaskID, retried.TaskID)
	}
	if final.Status != entity.MessageStatusCompleted {
		t.Errorf("status = %q, want completed", final.Status)
	}
}
