package v1

import (
	"github.com/bytedance/gg/gslice"
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	"github.com/clinicore/clinicore/internal/pkg/core"
	"github.com/clinicore/clinicore/pkg/errorx"
)

// SpecialistHandler exposes the specialist registry.
type SpecialistHandler struct {
	svc *service.SpecialistService
}

// NewSpecialistHandler creates a new SpecialistHandler.
func NewSpecialistHandler(svc *service.SpecialistService) *SpecialistHandler {
	return &SpecialistHandler{svc: svc}
}

// Create handles POST /v1/specialists.
func (h *SpecialistHandler) Create(c *gin.Context) {
	var req CreateSpecialistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind create specialist request"), nil)
		return
	}

	sp := &entity.Specialist{
		Name:         req.Name,
		Role:         req.Role,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Enabled:      req.Enabled,
		IsTemplate:   req.IsTemplate,
	}
	created, err := h.svc.Create(c.Request.Context(), sp)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistCreate), "create specialist %q", req.Name), nil)
		return
	}
	core.WriteResponse(c, nil, toSpecialistResponse(created))
}

// List handles GET /v1/specialists. Specialists are returned in
// registration order.
func (h *SpecialistHandler) List(c *gin.Context) {
	sps, err := h.svc.List(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrSpecialistList, "list specialists"), nil)
		return
	}
	core.WriteResponse(c, nil, gslice.Map(sps, toSpecialistResponse))
}

// Get handles GET /v1/specialists/:id.
func (h *SpecialistHandler) Get(c *gin.Context) {
	id := c.Param("id")
	sp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistNotFound), "get specialist %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, toSpecialistResponse(sp))
}

// Update handles PUT /v1/specialists/:id. Template status and template
// lineage are not editable through this endpoint.
func (h *SpecialistHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var req UpdateSpecialistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind update specialist request"), nil)
		return
	}

	current, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistNotFound), "get specialist %q", id), nil)
		return
	}
	current.Name = req.Name
	current.Role = req.Role
	current.Description = req.Description
	current.SystemPrompt = req.SystemPrompt
	current.Enabled = req.Enabled

	updated, err := h.svc.Update(c.Request.Context(), current)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistUpdate), "update specialist %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, toSpecialistResponse(updated))
}

// Delete handles DELETE /v1/specialists/:id.
func (h *SpecialistHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistDelete), "delete specialist %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"deleted": id})
}

// Clone handles POST /v1/specialists/:id/clone. The target must be a
// template; the clone is a concrete specialist referencing it.
func (h *SpecialistHandler) Clone(c *gin.Context) {
	id := c.Param("id")
	var req CloneSpecialistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind clone specialist request"), nil)
		return
	}

	clone, err := h.svc.CloneTemplate(c.Request.Context(), id, req.Name)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, domainCode(err, ErrSpecialistClone), "clone specialist template %q", id), nil)
		return
	}
	core.WriteResponse(c, nil, toSpecialistResponse(clone))
}
