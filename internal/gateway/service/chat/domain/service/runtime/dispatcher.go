package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/logger"
)

// DispatchRequest is one incoming chat turn.
type DispatchRequest struct {
	// SessionID selects the conversation; empty creates a new session.
	SessionID string
	// Input is the user message text.
	Input string
	// Title seeds the session title when a new session is created.
	Title string
}

// DispatchResult is returned to the client immediately, before any
// execution happens.
type DispatchResult struct {
	TaskID    string               `json:"task_id"`
	MessageID string               `json:"message_id"`
	SessionID string               `json:"session_id"`
	Status    entity.MessageStatus `json:"status"`
}

// Dispatcher accepts a chat turn, records it, enqueues one execution unit,
// and returns without waiting on the turn.
type Dispatcher struct {
	sessionRepo repo.SessionRepository
	msgRepo     repo.MessageRepository
	queue       *TaskQueue
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sessionRepo repo.SessionRepository, msgRepo repo.MessageRepository, queue *TaskQueue) *Dispatcher {
	return &Dispatcher{
		sessionRepo: sessionRepo,
		msgRepo:     msgRepo,
		queue:       queue,
	}
}

// Dispatch records the user turn, creates the pending assistant message
// bound to a fresh task handle, and enqueues the execution unit.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error) {
	if req.Input == "" {
		return nil, errno.ErrMissingInput
	}

	session, err := d.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMsg := &entity.ChatMessage{
		ID:            uuid.New().String(),
		SessionID:     session.ID,
		Role:          entity.RoleUser,
		Content:       req.Input,
		Status:        entity.MessageStatusCompleted,
		CompletedAt:   &now,
		LastUpdatedAt: now,
		CreatedAt:     now,
	}
	if err := d.msgRepo.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	taskID := uuid.New().String()
	assistant := entity.NewPendingAssistantMessage(session.ID, taskID)
	assistant.ID = uuid.New().String()
	if err := d.msgRepo.Create(ctx, assistant); err != nil {
		return nil, err
	}

	unit := &entity.TaskUnit{
		TaskID:     taskID,
		MessageID:  assistant.ID,
		SessionID:  session.ID,
		Input:      req.Input,
		EnqueuedAt: time.Now(),
	}
	if err := d.queue.Enqueue(ctx, unit); err != nil {
		// Surface the failure on the message instead of leaving a pending
		// row nothing will ever pick up.
		sm := NewTaskStateMachine(assistant, d.msgRepo)
		_ = sm.TransitionToError(ctx, "", "failed to enqueue task: "+err.Error())
		return nil, err
	}

	logger.InfoX(pkg.ModuleName, "[Dispatcher] dispatched task %s for session %s", taskID, session.ID)
	return &DispatchResult{
		TaskID:    taskID,
		MessageID: assistant.ID,
		SessionID: session.ID,
		Status:    entity.MessageStatusPending,
	}, nil
}

// Retry re-dispatches a terminal message under a fresh task handle.
func (d *Dispatcher) Retry(ctx context.Context, messageID string) (*DispatchResult, error) {
	msg, err := d.msgRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	// The retried turn re-runs against the original user input, which is
	// the completed user message preceding this assistant turn.
	input, err := d.inputFor(ctx, msg)
	if err != nil {
		return nil, err
	}

	taskID := uuid.New().String()
	sm := NewTaskStateMachine(msg, d.msgRepo)
	if err := sm.PrepareRetry(ctx, taskID); err != nil {
		return nil, err
	}

	unit := &entity.TaskUnit{
		TaskID:     taskID,
		MessageID:  msg.ID,
		SessionID:  msg.SessionID,
		Input:      input,
		EnqueuedAt: time.Now(),
	}
	if err := d.queue.Enqueue(ctx, unit); err != nil {
		_ = sm.TransitionToError(ctx, "", "failed to enqueue retry: "+err.Error())
		return nil, err
	}

	logger.InfoX(pkg.ModuleName, "[Dispatcher] retried message %s as task %s", msg.ID, taskID)
	return &DispatchResult{
		TaskID:    taskID,
		MessageID: msg.ID,
		SessionID: msg.SessionID,
		Status:    entity.MessageStatusPending,
	}, nil
}

func (d *Dispatcher) resolveSession(ctx context.Context, req *DispatchRequest) (*entity.ChatSession, error) {
	if req.SessionID != "" {
		session, err := d.sessionRepo.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		session.UpdatedAt = time.Now()
		if err := d.sessionRepo.Update(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	now := time.Now()
	session := &entity.ChatSession{
		ID:        uuid.New().String(),
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// inputFor finds the user message a retried assistant turn answers: the
// latest user message created before the assistant message.
func (d *Dispatcher) inputFor(ctx context.Context, msg *entity.ChatMessage) (string, error) {
	msgs, err := d.msgRepo.ListBySession(ctx, msg.SessionID)
	if err != nil {
		return "", err
	}
	input := ""
	for _, m := range msgs {
		if m.Role == entity.RoleUser && !m.CreatedAt.After(msg.CreatedAt) {
			input = m.Content
		}
	}
	if input == "" {
		return "", errno.ErrMissingInput
	}
	return input, nil
}
