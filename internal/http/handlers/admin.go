package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labreport-backend/internal/http/middleware"
	"github.com/yungbote/labreport-backend/internal/http/response"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
	"github.com/yungbote/labreport-backend/internal/services"
)

type AdminHandler struct {
	params services.ParameterService
}

func NewAdminHandler(params services.ParameterService) *AdminHandler {
	return &AdminHandler{params: params}
}

func parameterID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid parameter id", perrors.ErrInvalidArgument)
	}
	return id, nil
}

// GET /api/admin/parameters/pending
func (h *AdminHandler) ListPendingMirror(c *gin.Context) {
	items, err := h.params.ListPendingMirror(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pending_parameters": items})
}

// GET /api/admin/parameters?status=pending,rejected
func (h *AdminHandler) ListByStatus(c *gin.Context) {
	raw := c.DefaultQuery("status", "pending,rejected")
	var statuses []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	params, err := h.params.ListByStatus(dbctx.Context{Ctx: c.Request.Context()}, statuses, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"parameters": params})
}

// POST /api/admin/parameters/:id/approve
func (h *AdminHandler) Approve(c *gin.Context) {
	id, err := parameterID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	p, err := h.params.Approve(dbctx.Context{Ctx: c.Request.Context()}, id, middleware.ApproverID(c), c.PostForm("remarks"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Parameter approved", "parameter": p})
}

// POST /api/admin/parameters/:id/reject
func (h *AdminHandler) Reject(c *gin.Context) {
	id, err := parameterID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	p, err := h.params.Reject(dbctx.Context{Ctx: c.Request.Context()}, id, middleware.ApproverID(c), c.PostForm("remarks"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Parameter rejected", "parameter": p})
}

// POST /api/admin/parameters/:id/map
func (h *AdminHandler) Map(c *gin.Context) {
	id, err := parameterID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	p, err := h.params.MapToExisting(dbctx.Context{Ctx: c.Request.Context()}, id, c.PostForm("map_to_existing"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Mapping updated", "parameter": p})
}
