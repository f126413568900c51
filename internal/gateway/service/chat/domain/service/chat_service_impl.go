package service

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service/runtime"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
)

// previewLimit caps the content excerpt in a poll snapshot.
const previewLimit = 200

type chatService struct {
	dispatcher  *runtime.Dispatcher
	relay       *runtime.Relay
	msgRepo     repo.MessageRepository
	sessionRepo repo.SessionRepository
	gate        *ToolGate
	executor    *toolexec.Executor
}

// NewChatService assembles the chat service over its collaborators.
func NewChatService(
	dispatcher *runtime.Dispatcher,
	relay *runtime.Relay,
	msgRepo repo.MessageRepository,
	sessionRepo repo.SessionRepository,
	gate *ToolGate,
	executor *toolexec.Executor,
) ChatService {
	return &chatService{
		dispatcher:  dispatcher,
		relay:       relay,
		msgRepo:     msgRepo,
		sessionRepo: sessionRepo,
		gate:        gate,
		executor:    executor,
	}
}

func (s *chatService) Dispatch(ctx context.Context, req *runtime.DispatchRequest) (*runtime.DispatchResult, error) {
	return s.dispatcher.Dispatch(ctx, req)
}

func (s *chatService) Retry(ctx context.Context, messageID string) (*runtime.DispatchResult, error) {
	// A retried message gets a fresh stream; drop the old retained log so
	// subscribers of the new task never see stale events.
	res, err := s.dispatcher.Retry(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.relay.Forget(messageID)
	return res, nil
}

func (s *chatService) PollTask(ctx context.Context, taskID string) (*TaskView, error) {
	msg, err := s.msgRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	view := &TaskView{
		TaskID:    msg.TaskID,
		Status:    msg.Status,
		MessageID: msg.ID,
		SessionID: msg.SessionID,
		Logs:      msg.Logs,
		Error:     msg.ErrorMessage,
		Usage:     msg.Usage,
	}
	if msg.Status == entity.MessageStatusCompleted {
		view.Result = msg.Content
	} else if msg.Content != "" {
		preview := msg.Content
		if len(preview) > previewLimit {
			preview = preview[:previewLimit]
		}
		view.ContentPreview = preview
	}
	return view, nil
}

func (s *chatService) StreamTask(ctx context.Context, taskID string) (*schema.StreamReader[*entity.StreamEvent], error) {
	msg, err := s.msgRepo.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	// A terminal message is replayed from its persisted accumulator, which
	// also covers resume after a process restart emptied the relay.
	if msg.Status.IsTerminal() {
		return terminalReplay(msg), nil
	}
	return s.relay.Subscribe(ctx, msg.ID), nil
}

// terminalReplay synthesizes the full-content-then-terminal-event stream of
// a finished message.
func terminalReplay(msg *entity.ChatMessage) *schema.StreamReader[*entity.StreamEvent] {
	sr, sw := schema.Pipe[*entity.StreamEvent](2)
	seq := 0
	if msg.Content != "" {
		seq++
		sw.Send(&entity.StreamEvent{
			Type:      entity.EventDelta,
			MessageID: msg.ID,
			Seq:       seq,
			Delta:     msg.Content,
		}, nil)
	}
	seq++
	sw.Send(&entity.StreamEvent{
		Type:      entity.EventDone,
		MessageID: msg.ID,
		Seq:       seq,
		Status:    msg.Status,
		Error:     msg.ErrorMessage,
		Usage:     msg.Usage,
	}, nil)
	sw.Close()
	return sr
}

func (s *chatService) GetSession(ctx context.Context, id string) (*entity.ChatSession, error) {
	return s.sessionRepo.Get(ctx, id)
}

func (s *chatService) ListSessions(ctx context.Context) ([]*entity.ChatSession, error) {
	return s.sessionRepo.List(ctx)
}

func (s *chatService) DeleteSession(ctx context.Context, id string) error {
	msgs, err := s.msgRepo.ListBySession(ctx, id)
	if err == nil {
		for _, m := range msgs {
			s.relay.Forget(m.ID)
		}
	}
	return s.sessionRepo.Delete(ctx, id)
}

func (s *chatService) ListMessages(ctx context.Context, sessionID string) ([]*entity.ChatMessage, error) {
	return s.msgRepo.ListBySession(ctx, sessionID)
}

func (s *chatService) TestTool(ctx context.Context, toolID string, args map[string]any) (toolexec.Envelope, *entity.Tool, error) {
	tool, err := s.gate.Get(ctx, toolID)
	if err != nil {
		return toolexec.Envelope{}, nil, err
	}
	env := s.executor.Test(ctx, tool, args)
	updated, err := s.gate.MarkTested(ctx, toolID, env.Status == toolexec.StatusSuccess)
	if err != nil {
		return env, nil, err
	}
	return env, updated, nil
}
