package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service/runtime"
	"github.com/clinicore/clinicore/internal/pkg/core"
	"github.com/clinicore/clinicore/pkg/errorx"
)

// ChatHandler handles turn dispatch and retry.
type ChatHandler struct {
	svc service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Dispatch handles POST /v1/chat. It returns the task handle immediately;
// the turn executes in the background.
func (h *ChatHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind dispatch request"), nil)
		return
	}

	res, err := h.svc.Dispatch(c.Request.Context(), &runtime.DispatchRequest{
		SessionID: req.SessionID,
		Input:     req.Input,
		Title:     req.Title,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrDispatch), "dispatch chat turn"), nil)
		return
	}
	core.WriteResponse(c, nil, res)
}

// Retry handles POST /v1/messages/:id/retry. Only terminal messages may be
// retried; the retry allocates a fresh task handle.
func (h *ChatHandler) Retry(c *gin.Context) {
	id := c.Param("id")
	res, err := h.svc.Retry(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrRetry), "retry message %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, res)
}
