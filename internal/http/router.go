package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/labreport-backend/internal/http/handlers"
	httpMW "github.com/yungbote/labreport-backend/internal/http/middleware"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler *httpH.HealthHandler
	ReportHandler *httpH.ReportHandler
	AdminHandler  *httpH.AdminHandler
	EventsHandler *httpH.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Reports
		if cfg.ReportHandler != nil {
			api.POST("/reports", cfg.ReportHandler.Upload)
			api.GET("/reports", cfg.ReportHandler.ListMine)
			api.GET("/reports/:id", cfg.ReportHandler.Get)
			api.GET("/reports/:id/parameters", cfg.ReportHandler.ListParameters)
			api.GET("/reports/:id/job", cfg.ReportHandler.LatestJob)
			api.POST("/reports/:id/extract", cfg.ReportHandler.Extract)
		}
		if cfg.EventsHandler != nil {
			api.GET("/reports/:id/events", cfg.EventsHandler.Stream)
		}

		// Admin review
		if cfg.AdminHandler != nil {
			admin := api.Group("/admin")
			admin.GET("/parameters", cfg.AdminHandler.ListByStatus)
			admin.GET("/parameters/pending", cfg.AdminHandler.ListPendingMirror)
			admin.POST("/parameters/:id/approve", cfg.AdminHandler.Approve)
			admin.POST("/parameters/:id/reject", cfg.AdminHandler.Reject)
			admin.POST("/parameters/:id/map", cfg.AdminHandler.Map)
		}
	}

	return r
}
