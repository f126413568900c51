package runtime

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/logger"
)

// TaskStateMachine manages the lifecycle transitions of one chat turn.
// State machine: Pending -> Streaming -> Completed | Error
// Streaming -> Interrupted is applied only by the reconciler.
// Retry is the single explicit backward transition: terminal -> Pending
// under a fresh task handle.
type TaskStateMachine struct {
	msg     *entity.ChatMessage
	msgRepo repo.MessageRepository
}

// NewTaskStateMachine creates a state machine bound to the given message.
func NewTaskStateMachine(msg *entity.ChatMessage, msgRepo repo.MessageRepository) *TaskStateMachine {
	return &TaskStateMachine{
		msg:     msg,
		msgRepo: msgRepo,
	}
}

// TransitionToStreaming moves a pending message into streaming.
func (sm *TaskStateMachine) TransitionToStreaming(ctx context.Context) error {
	if sm.msg.Status != entity.MessageStatusPending {
		return errno.ErrTaskAlreadyDone
	}
	now := time.Now()
	sm.msg.Status = entity.MessageStatusStreaming
	sm.msg.StreamingStartedAt = &now
	sm.msg.Touch()
	logger.InfoX(pkg.ModuleName, "[TaskState] task %s -> streaming", sm.msg.TaskID)
	return sm.msgRepo.Update(ctx, sm.msg)
}

// TransitionToCompleted finalizes the message with its full content and
// token usage. CompletedAt and Usage are written here exactly once.
func (sm *TaskStateMachine) TransitionToCompleted(ctx context.Context, content string, usage *entity.TokenUsage) error {
	if sm.msg.Status.IsTerminal() {
		return errno.ErrTaskAlreadyDone
	}
	now := time.Now()
	sm.msg.Status = entity.MessageStatusCompleted
	sm.msg.Content = content
	sm.msg.Usage = usage
	sm.msg.CompletedAt = &now
	sm.msg.Touch()
	logger.InfoX(pkg.ModuleName, "[TaskState] task %s -> completed", sm.msg.TaskID)
	return sm.msgRepo.Update(ctx, sm.msg)
}

// TransitionToError finalizes the message as failed, keeping whatever
// partial content was accumulated.
func (sm *TaskStateMachine) TransitionToError(ctx context.Context, partial, errMsg string) error {
	if sm.msg.Status.IsTerminal() {
		return errno.ErrTaskAlreadyDone
	}
	now := time.Now()
	sm.msg.Status = entity.MessageStatusError
	if partial != "" {
		sm.msg.Content = partial
	}
	sm.msg.ErrorMessage = errMsg
	sm.msg.CompletedAt = &now
	sm.msg.Touch()
	logger.ErrorX(pkg.ModuleName, "[TaskState] task %s -> error: %s", sm.msg.TaskID, errMsg)
	return sm.msgRepo.Update(ctx, sm.msg)
}

// PrepareRetry re-arms a terminal message under a fresh task handle and
// resets it to pending. The only legal backward transition, always explicit.
func (sm *TaskStateMachine) PrepareRetry(ctx context.Context, newTaskID string) error {
	if !sm.msg.Status.IsTerminal() {
		return errno.ErrMessageNotTerminal
	}
	sm.msg.Status = entity.MessageStatusPending
	sm.msg.TaskID = newTaskID
	sm.msg.Content = ""
	sm.msg.Logs = nil
	sm.msg.ErrorMessage = ""
	sm.msg.Usage = nil
	sm.msg.StreamingStartedAt = nil
	sm.msg.CompletedAt = nil
	sm.msg.Touch()
	logger.InfoX(pkg.ModuleName, "[TaskState] message %s re-armed as task %s", sm.msg.ID, newTaskID)
	return sm.msgRepo.Update(ctx, sm.msg)
}

// Message returns the current message.
func (sm *TaskStateMachine) Message() *entity.ChatMessage {
	return sm.msg
}
