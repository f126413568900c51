package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/pkg/logger"
	"github.com/clinicore/clinicore/pkg/utils/safego"
)

// TurnContext carries everything a runner needs for one assistant turn.
type TurnContext struct {
	// Unit is the execution unit being served.
	Unit *entity.TaskUnit
	// Message is the assistant message owned by this worker.
	Message *entity.ChatMessage
	// DecisionContext enumerates the consultable specialists.
	DecisionContext string
	// Coordinator delegates consultations.
	Coordinator *Coordinator
	// Tools invokes gated tools.
	Tools *ToolInvoker
}

// TurnResult is a runner's final output.
type TurnResult struct {
	Content string
	Usage   *entity.TokenUsage
}

// TurnRunner produces one assistant turn, emitting increments as it goes.
// The default runner is LocalTurnRunner; a model-backed runner plugs in
// through the same seam.
type TurnRunner interface {
	Run(ctx context.Context, turn *TurnContext, emit func(*entity.StreamEvent)) (*TurnResult, error)
}

// PoolConfig bounds the worker pool. Immutable after startup.
type PoolConfig struct {
	// Concurrency is the number of workers pulling from the queue.
	Concurrency int
	// SoftDeadline is the graceful wind-down point of one turn.
	SoftDeadline time.Duration
	// HardDeadline is the forced-kill point. Must exceed SoftDeadline.
	HardDeadline time.Duration
}

// DefaultPoolConfig returns the standard bounds.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:  4,
		SoftDeadline: 4 * time.Minute,
		HardDeadline: 5 * time.Minute,
	}
}

func (c PoolConfig) withDefaults() PoolConfig {
	d := DefaultPoolConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.SoftDeadline <= 0 {
		c.SoftDeadline = d.SoftDeadline
	}
	if c.HardDeadline <= c.SoftDeadline {
		c.HardDeadline = c.SoftDeadline + time.Minute
	}
	return c
}

// Pool executes queued chat turns. Each worker owns the message it is
// serving exclusively until the turn reaches a terminal state; every write
// bumps the message's last-update watermark.
type Pool struct {
	cfg         PoolConfig
	queue       *TaskQueue
	msgRepo     repo.MessageRepository
	sessionRepo repo.SessionRepository
	relay       *Relay
	runner      TurnRunner
	coordinator *Coordinator
	invoker     *ToolInvoker
}

// NewPool creates a worker pool.
func NewPool(
	cfg PoolConfig,
	queue *TaskQueue,
	msgRepo repo.MessageRepository,
	sessionRepo repo.SessionRepository,
	relay *Relay,
	runner TurnRunner,
	coordinator *Coordinator,
	invoker *ToolInvoker,
) *Pool {
	return &Pool{
		cfg:         cfg.withDefaults(),
		queue:       queue,
		msgRepo:     msgRepo,
		sessionRepo: sessionRepo,
		relay:       relay,
		runner:      runner,
		coordinator: coordinator,
		invoker:     invoker,
	}
}

// Start launches the workers. They exit when the queue closes or the
// context is canceled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Concurrency; i++ {
		worker := i
		safego.Go(ctx, func() {
			logger.DebugX(pkg.ModuleName, "[Pool] worker %d started", worker)
			for {
				select {
				case <-ctx.Done():
					return
				case unit, ok := <-p.queue.Units():
					if !ok {
						return
					}
					p.serve(ctx, unit)
				}
			}
		})
	}
}

// serve executes one unit, converting panics into a redelivery.
func (p *Pool) serve(ctx context.Context, unit *entity.TaskUnit) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorX(pkg.ModuleName, "[Pool] panic serving task %s: %v", unit.TaskID, r)
			if !p.queue.Nack(ctx, unit) {
				p.failBeyondRetry(ctx, unit, fmt.Sprintf("worker crashed: %v", r))
			}
		}
	}()
	p.execute(ctx, unit)
}

func (p *Pool) execute(ctx context.Context, unit *entity.TaskUnit) {
	msg, err := p.msgRepo.Get(ctx, unit.MessageID)
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[Pool] task %s references missing message %s", unit.TaskID, unit.MessageID)
		p.queue.Ack(ctx, unit.TaskID)
		return
	}
	// A retry supersedes older units for the same message.
	if msg.TaskID != unit.TaskID || msg.Status.IsTerminal() {
		p.queue.Ack(ctx, unit.TaskID)
		return
	}

	abort := NewAbortController(ctx, unit.TaskID, p.cfg.SoftDeadline, p.cfg.HardDeadline)
	defer abort.CleanUp()

	sm := NewTaskStateMachine(msg, p.msgRepo)
	if err := sm.TransitionToStreaming(abort.Context()); err != nil {
		p.queue.Ack(ctx, unit.TaskID)
		return
	}
	p.relay.Publish(msg.ID, &entity.StreamEvent{Type: entity.EventStatus, Status: entity.MessageStatusStreaming})

	// progressMu serializes the runner's emits against wind-down: once the
	// soft deadline takes the partial snapshot, the worker is the message's
	// only writer again and late emits become no-ops.
	var (
		progressMu sync.Mutex
		woundDown  bool
		content    strings.Builder
	)
	emit := func(ev *entity.StreamEvent) {
		progressMu.Lock()
		if woundDown {
			progressMu.Unlock()
			return
		}
		switch ev.Type {
		case entity.EventDelta:
			content.WriteString(ev.Delta)
			msg.Content = content.String()
			msg.Touch()
		case entity.EventToolCall:
			msg.AppendLog("tool call: " + ev.ToolSymbol)
		case entity.EventConsult:
			msg.AppendLog("consulting specialist: " + ev.Specialist)
		}
		if err := p.msgRepo.Update(abort.Context(), msg); err != nil {
			logger.WarnX(pkg.ModuleName, "[Pool] failed to persist progress of task %s: %v", unit.TaskID, err)
		}
		progressMu.Unlock()
		p.relay.Publish(msg.ID, ev)
	}

	decision, err := p.coordinator.DecisionContext(abort.Context())
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[Pool] failed to build decision context: %v", err)
		decision = "no specialists available"
	}

	turn := &TurnContext{
		Unit:            unit,
		Message:         msg,
		DecisionContext: decision,
		Coordinator:     p.coordinator,
		Tools:           p.invoker,
	}

	type outcome struct {
		result *TurnResult
		err    error
	}
	done := make(chan outcome, 1)
	safego.Go(abort.Context(), func() {
		result, runErr := p.runner.Run(abort.Context(), turn, emit)
		done <- outcome{result: result, err: runErr}
	})

	select {
	case <-abort.SoftDone():
		// Graceful wind-down: persist the partial content as an error
		// terminal state before the hard deadline can kill us. The runner
		// may still be emitting, so snapshot under the progress lock and
		// silence further emits.
		abort.Abort()
		progressMu.Lock()
		woundDown = true
		partial := content.String()
		progressMu.Unlock()
		p.finalizeError(ctx, sm, partial,
			fmt.Sprintf("task deadline exceeded after %s", p.cfg.SoftDeadline))
		p.queue.Ack(ctx, unit.TaskID)
		return
	case out := <-done:
		if out.err != nil {
			p.finalizeError(ctx, sm, content.String(), out.err.Error())
			p.queue.Ack(ctx, unit.TaskID)
			return
		}
		p.finalizeSuccess(ctx, sm, out.result)
		p.queue.Ack(ctx, unit.TaskID)
	}
}

func (p *Pool) finalizeSuccess(ctx context.Context, sm *TaskStateMachine, result *TurnResult) {
	msg := sm.Message()
	if err := sm.TransitionToCompleted(ctx, result.Content, result.Usage); err != nil {
		logger.ErrorX(pkg.ModuleName, "[Pool] failed to complete task %s: %v", msg.TaskID, err)
		return
	}
	p.addSessionUsage(ctx, msg.SessionID, result.Usage)
	p.relay.Publish(msg.ID, &entity.StreamEvent{
		Type:   entity.EventDone,
		Status: entity.MessageStatusCompleted,
		Usage:  result.Usage,
	})
	p.relay.CloseTopic(msg.ID)
}

func (p *Pool) finalizeError(ctx context.Context, sm *TaskStateMachine, partial, errMsg string) {
	msg := sm.Message()
	if err := sm.TransitionToError(ctx, partial, errMsg); err != nil {
		logger.ErrorX(pkg.ModuleName, "[Pool] failed to fail task %s: %v", msg.TaskID, err)
		return
	}
	p.relay.Publish(msg.ID, &entity.StreamEvent{
		Type:   entity.EventDone,
		Status: entity.MessageStatusError,
		Error:  errMsg,
	})
	p.relay.CloseTopic(msg.ID)
}

// failBeyondRetry marks a message whose unit exhausted the retry budget.
func (p *Pool) failBeyondRetry(ctx context.Context, unit *entity.TaskUnit, errMsg string) {
	msg, err := p.msgRepo.Get(ctx, unit.MessageID)
	if err != nil {
		return
	}
	if msg.TaskID != unit.TaskID || msg.Status.IsTerminal() {
		return
	}
	sm := NewTaskStateMachine(msg, p.msgRepo)
	p.finalizeError(ctx, sm, msg.Content, errMsg)
}

func (p *Pool) addSessionUsage(ctx context.Context, sessionID string, usage *entity.TokenUsage) {
	if usage == nil {
		return
	}
	session, err := p.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[Pool] failed to load session %s for usage: %v", sessionID, err)
		return
	}
	session.AddUsage(usage)
	if err := p.sessionRepo.Update(ctx, session); err != nil {
		logger.WarnX(pkg.ModuleName, "[Pool] failed to persist session usage: %v", err)
	}
}
