package v1

import (
	"github.com/bytedance/gg/gslice"
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/pkg/core"
	"github.com/clinicore/clinicore/pkg/errorx"
)

// ToolHandler exposes tool registry management and test runs.
type ToolHandler struct {
	gate *service.ToolGate
	svc  service.ChatService
}

// NewToolHandler creates a new ToolHandler.
func NewToolHandler(gate *service.ToolGate, svc service.ChatService) *ToolHandler {
	return &ToolHandler{gate: gate, svc: svc}
}

// Create handles POST /v1/tools.
func (h *ToolHandler) Create(c *gin.Context) {
	var req CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind create tool request"), nil)
		return
	}

	tool := &entity.Tool{
		Name:                 req.Name,
		Symbol:               req.Symbol,
		Type:                 entity.ToolType(req.Type),
		Code:                 req.Code,
		Entrypoint:           req.Entrypoint,
		APIEndpoint:          req.APIEndpoint,
		RequestSchema:        req.RequestSchema,
		ResponseSchema:       req.ResponseSchema,
		Examples:             req.Examples,
		Description:          req.Description,
		Scope:                entity.ToolScope(req.Scope),
		Enabled:              req.Enabled,
		TestPassed:           req.TestPassed,
		AssignedSpecialistID: req.AssignedSpecialistID,
	}
	created, err := h.gate.Create(c.Request.Context(), tool)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrToolCreate), "create tool %q", req.Name), nil)
		return
	}
	core.WriteResponse(c, nil, toToolResponse(created))
}

// List handles GET /v1/tools.
func (h *ToolHandler) List(c *gin.Context) {
	tools, err := h.gate.List(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrToolList, "list tools"), nil)
		return
	}
	core.WriteResponse(c, nil, gslice.Map(tools, toToolResponse))
}

// Get handles GET /v1/tools/:id.
func (h *ToolHandler) Get(c *gin.Context) {
	id := c.Param("id")
	tool, err := h.gate.Get(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrToolNotFound), "get tool %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, toToolResponse(tool))
}

// UpdateToolResponse wraps the updated tool with the gate's demotion flag.
type UpdateToolResponse struct {
	Tool ToolResponse `json:"tool"`

	// AutoDisabled is set when the edit invalidated the test of an enabled
	// tool and the gate disabled it instead of rejecting the update.
	AutoDisabled bool `json:"auto_disabled"`
}

// Update handles PATCH /v1/tools/:id. Absent fields are left untouched.
func (h *ToolHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var req UpdateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind update tool request"), nil)
		return
	}

	patch := &service.ToolPatch{
		Name:                 req.Name,
		Symbol:               req.Symbol,
		Code:                 req.Code,
		Entrypoint:           req.Entrypoint,
		APIEndpoint:          req.APIEndpoint,
		RequestSchema:        req.RequestSchema,
		ResponseSchema:       req.ResponseSchema,
		Examples:             req.Examples,
		Description:          req.Description,
		Enabled:              req.Enabled,
		TestPassed:           req.TestPassed,
		AssignedSpecialistID: req.AssignedSpecialistID,
	}
	if req.Scope != nil {
		scope := entity.ToolScope(*req.Scope)
		patch.Scope = &scope
	}

	res, err := h.gate.Update(c.Request.Context(), id, patch)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrToolUpdate), "update tool %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, UpdateToolResponse{
		Tool:         toToolResponse(res.Tool),
		AutoDisabled: res.AutoDisabled,
	})
}

// Delete handles DELETE /v1/tools/:id.
func (h *ToolHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.gate.Delete(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrToolDelete), "delete tool %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"deleted": id})
}

// TestToolResponse reports a test run and the tool state it produced.
type TestToolResponse struct {
	Status string       `json:"status"`
	Result string       `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
	Tool   ToolResponse `json:"tool"`
}

// Test handles POST /v1/tools/:id/test. The run executes against the current
// definition and its outcome is recorded on the gate; a failing run on an
// enabled tool disables it.
func (h *ToolHandler) Test(c *gin.Context) {
	id := c.Param("id")
	var req TestToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind test tool request"), nil)
		return
	}

	env, tool, err := h.svc.TestTool(c.Request.Context(), id, req.Arguments)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrToolTest), "test tool %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, TestToolResponse{
		Status: env.Status,
		Result: env.Result,
		Error:  env.Error,
		Tool:   toToolResponse(tool),
	})
}
