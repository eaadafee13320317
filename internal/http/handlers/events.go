package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/labreport-backend/internal/http/middleware"
	"github.com/yungbote/labreport-backend/internal/http/response"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/realtime"
	"github.com/yungbote/labreport-backend/internal/services"
)

type EventsHandler struct {
	hub     *realtime.Hub
	reports services.ReportService
}

func NewEventsHandler(hub *realtime.Hub, reports services.ReportService) *EventsHandler {
	return &EventsHandler{hub: hub, reports: reports}
}

// GET /api/reports/:id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	report, err := h.reports.GetByExternalID(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	client := h.hub.NewClient(middleware.ClientID(c))
	h.hub.AddChannel(client, realtime.ReportChannel(report.ExternalID))
	defer h.hub.CloseClient(client)
	h.hub.Serve(c.Writer, c.Request, client)
}
