package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/labreport-backend/internal/platform/ctxutil"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

const healthPath = "/healthcheck"

// RequestLogger writes one line per request. Client ids go through the
// logger's hashing like every other owner identifier.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if log == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if id := c.GetHeader("X-Client-Id"); id != "" {
			fields = append(fields, "client_id", id)
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case route == healthPath:
			log.Debug("request served", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
