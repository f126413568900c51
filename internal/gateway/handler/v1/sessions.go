package v1

import (
	"github.com/bytedance/gg/gslice"
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/pkg/core"
	"github.com/clinicore/clinicore/pkg/errorx"
)

// SessionHandler exposes session listing and history.
type SessionHandler struct {
	svc service.ChatService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc service.ChatService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// List handles GET /v1/sessions. Each entry carries its message count.
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrSessionList, "list sessions"), nil)
		return
	}
	resp := gslice.Map(sessions, toSessionResponse)
	for i := range resp {
		msgs, err := h.svc.ListMessages(c.Request.Context(), resp[i].ID)
		if err != nil {
			continue
		}
		resp[i].MessageCount = len(msgs)
	}
	core.WriteResponse(c, nil, resp)
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	s, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSessionNotFound), "get session %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, toSessionResponse(s))
}

// Delete handles DELETE /v1/sessions/:id. Messages of the session are
// removed with it.
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteSession(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSessionDelete), "delete session %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"deleted": id})
}

// ListMessages handles GET /v1/sessions/:id/messages. Messages are ordered
// by creation time.
func (h *SessionHandler) ListMessages(c *gin.Context) {
	id := c.Param("id")
	msgs, err := h.svc.ListMessages(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrMessageList), "list messages of session %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, gslice.Map(msgs, toMessageResponse))
}
