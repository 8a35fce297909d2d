package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"course-dashboard/internal/logger"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/tracing"
	"course-dashboard/internal/viewmodel"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	// RefreshEvery and RefreshBurst limit manual refreshes across all
	// clients. Zero RefreshEvery disables the limit.
	RefreshEvery time.Duration
	RefreshBurst int
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if h.Views == nil {
		h.Views = &viewmodel.Memo{}
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(h.Logger), monitoring.MetricsMiddleware(), tracing.GinMiddleware(), secure())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", monitoring.PrometheusHandler())

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.GetDashboard)
		api.POST("/dashboard/refresh", throttle(opts.RefreshEvery, opts.RefreshBurst), h.Refresh)
		api.GET("/activities/:id/content", h.GetContent)
		api.POST("/actions/:id", h.StartAction)
	}
	return r
}

func requestLog(l *zap.Logger) gin.HandlerFunc {
	log := logger.OrNop(l)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// throttle shares one token bucket between all callers of a route.
func throttle(every time.Duration, burst int) gin.HandlerFunc {
	if every <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(every), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			fail(c, http.StatusTooManyRequests, "refresh already requested, try again shortly")
			return
		}
		c.Next()
	}
}
