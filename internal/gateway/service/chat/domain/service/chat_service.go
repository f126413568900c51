package service

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service/runtime"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
)

// TaskView is the polling snapshot of one task.
type TaskView struct {
	TaskID         string               `json:"task_id"`
	Status         entity.MessageStatus `json:"status"`
	MessageID      string               `json:"message_id"`
	SessionID      string               `json:"session_id"`
	ContentPreview string               `json:"content_preview,omitempty"`
	Logs           []string             `json:"logs,omitempty"`
	Error          string               `json:"error,omitempty"`
	Result         string               `json:"result,omitempty"`
	Usage          *entity.TokenUsage   `json:"usage,omitempty"`
}

// ChatService is the application-level service for the chat gateway.
//
// It provides:
// - Turn dispatch and retry (always asynchronous)
// - Task observation by polling or streaming
// - Session management
// - Tool test runs feeding the gate
type ChatService interface {
	// --- Turn execution ---

	// Dispatch accepts a chat turn and returns before it executes.
	Dispatch(ctx context.Context, req *runtime.DispatchRequest) (*runtime.DispatchResult, error)

	// Retry re-dispatches a terminal message under a fresh task handle.
	Retry(ctx context.Context, messageID string) (*runtime.DispatchResult, error)

	// --- Task observation ---

	// PollTask returns a snapshot of the task's progress.
	PollTask(ctx context.Context, taskID string) (*TaskView, error)

	// StreamTask subscribes to the task's output. The reader replays
	// everything produced so far, then live increments, and ends with the
	// terminal event. Events are consumed via sr.Recv() until io.EOF.
	StreamTask(ctx context.Context, taskID string) (*schema.StreamReader[*entity.StreamEvent], error)

	// --- Session management ---

	GetSession(ctx context.Context, id string) (*entity.ChatSession, error)
	ListSessions(ctx context.Context) ([]*entity.ChatSession, error)
	DeleteSession(ctx context.Context, id string) error
	ListMessages(ctx context.Context, sessionID string) ([]*entity.ChatMessage, error)

	// --- Tool testing ---

	// TestTool runs the tool against the arguments and records the outcome
	// on the gate. The envelope always reports the run; the error covers
	// lookup and persistence only.
	TestTool(ctx context.Context, toolID string, args map[string]any) (toolexec.Envelope, *entity.Tool, error)
}
