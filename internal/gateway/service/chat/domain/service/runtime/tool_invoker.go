package runtime

import (
	"context"
	"errors"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/internal/gateway/service/toolexec"
)

// ExecBackend abstracts the sandboxed executor for the invoker.
type ExecBackend interface {
	Test(ctx context.Context, tool *entity.Tool, args map[string]any) toolexec.Envelope
}

// ToolInvoker resolves a tool call against the registry and runs it.
//
// The tool definition is read once per call as an immutable snapshot;
// administrative edits mid-turn do not affect an invocation that already
// captured its snapshot.
type ToolInvoker struct {
	toolRepo repo.ToolRepository
	exec     ExecBackend
}

// NewToolInvoker creates a ToolInvoker.
func NewToolInvoker(toolRepo repo.ToolRepository, exec ExecBackend) *ToolInvoker {
	return &ToolInvoker{toolRepo: toolRepo, exec: exec}
}

// Invoke runs one tool call. Failures are folded into the result so the
// enclosing turn is never aborted by a failing tool.
func (i *ToolInvoker) Invoke(ctx context.Context, call *entity.ToolCall) *entity.ToolResult {
	res := &entity.ToolResult{ToolCallID: call.ID, Symbol: call.Symbol}

	tool, err := i.toolRepo.GetBySymbol(ctx, call.Symbol)
	if err != nil {
		if errors.Is(err, errno.ErrToolNotFound) {
			res.Error = "tool not found: " + call.Symbol
		} else {
			res.Error = "tool lookup failed: " + err.Error()
		}
		return res
	}
	if !tool.Enabled {
		res.Error = "tool is disabled: " + call.Symbol
		return res
	}

	env := i.exec.Test(ctx, tool, call.Arguments)
	if env.Status == toolexec.StatusError {
		res.Error = env.Error
		return res
	}
	res.Content = env.Result
	return res
}
