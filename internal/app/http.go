package app

import (
	httpapi "github.com/yungbote/labreport-backend/internal/http"
	httpH "github.com/yungbote/labreport-backend/internal/http/handlers"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Report *httpH.ReportHandler
	Admin  *httpH.AdminHandler
	Events *httpH.EventsHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Report: httpH.NewReportHandler(services.Reports, services.Jobs, services.Pipeline),
		Admin:  httpH.NewAdminHandler(services.Parameters),
		Events: httpH.NewEventsHandler(services.EventHub, services.Reports),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers) *httpapi.Server {
	return httpapi.NewServer(httpapi.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		HealthHandler: handlers.Health,
		ReportHandler: handlers.Report,
		AdminHandler:  handlers.Admin,
		EventsHandler: handlers.Events,
	})
}
