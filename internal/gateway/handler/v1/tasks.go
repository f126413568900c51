package v1

import (
	"io"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/pkg/core"
	"github.com/clinicore/clinicore/pkg/errorx"
	"github.com/clinicore/clinicore/pkg/logger"
)

// TaskHandler exposes task observation: polling and streaming.
type TaskHandler struct {
	svc service.ChatService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc service.ChatService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Poll handles GET /v1/tasks/:id. It returns a snapshot of the task.
func (h *TaskHandler) Poll(c *gin.Context) {
	id := c.Param("id")
	view, err := h.svc.PollTask(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrTaskPoll), "poll task %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, view)
}

// Stream handles GET /v1/tasks/:id/stream. It delivers the task's output as
// server-sent events: replayed increments first, then live ones, ending with
// the terminal event. Reconnecting after completion replays the full content
// followed by the terminal event.
func (h *TaskHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	sr, err := h.svc.StreamTask(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrTaskStream), "stream task %q", id), nil)
		return
	}
	defer sr.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer
	for {
		select {
		case <-c.Request.Context().Done():
			return
		default:
		}

		ev, err := sr.Recv()
		if err != nil {
			if err != io.EOF {
				logger.Warn("[TaskHandler] stream recv error (code=%d): %v", ErrTaskStream, err)
			}
			break
		}

		if err := sse.Encode(w, sse.Event{
			Event: string(ev.Type),
			Data:  ev,
		}); err != nil {
			logger.Warn("[TaskHandler] sse encode error: %v", err)
			return
		}
		w.Flush()
	}

	// [DONE] sentinel so clients can tell a finished stream from a dropped
	// connection.
	if err := sse.Encode(w, sse.Event{Data: "[DONE]"}); err == nil {
		w.Flush()
	}
}
