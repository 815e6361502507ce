package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ovnexplorer/ovnexplorer/api/handler"
	"github.com/ovnexplorer/ovnexplorer/internal/cache"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// Deps 路由依赖，Index 与 Recorder 可为 nil
type Deps struct {
	Service  *service.AcquisitionService
	Cache    *cache.Cache
	Index    *cache.GormIndex
	Recorder *service.GormRefreshRecorder
	Version  string
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	resourceHandler := handler.NewResourceHandler(deps.Service)
	cacheHandler := handler.NewCacheHandler(deps.Cache, deps.Index, deps.Recorder)
	logsHandler := handler.NewLogsHandler()

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "OVN Explorer",
			"version": version,
			"status":  "running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", resourceHandler.Health)

		resources := v1.Group("/resources")
		{
			resources.POST("/refresh", resourceHandler.RefreshAll)
			resources.GET("/status", resourceHandler.Status)
			resources.GET("/:kind", resourceHandler.ListResources)
			resources.POST("/:kind/refresh", resourceHandler.RefreshKind)
			resources.GET("/:kind/:uuid", resourceHandler.GetResource)
		}

		c := v1.Group("/cache")
		{
			c.GET("/records", cacheHandler.Records)
			c.GET("/:kind/history", cacheHandler.History)
		}

		v1.GET("/refresh-logs", cacheHandler.RefreshLogs)
		v1.GET("/logs", logsHandler.TailLogs)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     statusCode,
			"duration":   time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		if statusCode >= 500 {
			entry.Error("HTTP Request")
			return
		}
		if statusCode >= 400 {
			entry.Warn("HTTP Request")
			return
		}
		entry.Info("HTTP Request")
	}
}
