package restapi

import (
	"net/http"
	"time"

	"address_vision/internal/app/port"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter builds the gin engine serving the lookup API, metrics and health checks.
func SetupRouter(lookupHandler *LookupHandler, allowedOrigins []string, logger port.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsCfg))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/lookup", lookupHandler.SubmitHandler)
		v1.POST("/lookup/retry", lookupHandler.RetryHandler)
		v1.GET("/view", lookupHandler.ViewHandler)
		v1.GET("/history", lookupHandler.HistoryHandler)
		v1.DELETE("/history/:address", lookupHandler.DeleteHistoryHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	return router
}

func requestLogger(logger port.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
