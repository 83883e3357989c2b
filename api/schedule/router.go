package schedule

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/vaxcal/core/logger"
)

// NewRouter returns a gin engine with recovery, request logging and the
// schedule routes. Extra handlers are mounted with GET under their path.
func NewRouter(mode string, log logger.Logger, h *Handler, extra map[string]http.Handler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if log != nil {
		router.Use(requestLogger(log))
	}
	h.Register(router)
	for path, eh := range extra {
		router.GET(path, gin.WrapH(eh))
	}
	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handlers can change c.Request.URL.Path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := time.Since(start).Milliseconds()
		status := c.Writer.Status()
		fields := map[string]any{
			"status":  status,
			"latency": latency,
			"method":  c.Request.Method,
			"path":    path,
			"size":    max(c.Writer.Size(), 0),
		}
		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, status, latency)
		switch {
		case status >= http.StatusInternalServerError:
			log.Errorf("%s: %s", msg, c.Errors.ByType(gin.ErrorTypePrivate).String())
		case status >= http.StatusBadRequest:
			log.Warnf("%s", msg)
		default:
			log.Debugw(msg, fields)
		}
	}
}
