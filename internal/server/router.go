package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router wires the gin engine with every table endpoint.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(s.log.Named("http")))

	r.GET("/healthz", s.health)
	r.GET("/records", s.listRecords)
	r.GET("/groups", s.listGroups)
	r.GET("/summary", s.summary)
	r.GET("/average", s.average)
	r.GET("/daynight", s.dayNight)
	r.GET("/chronogram", s.chronogram)
	r.GET("/breakpoint", s.breakpoint)
	r.GET("/meals", s.meals)

	return r
}

func zapLoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
