package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard API",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "Duration of dashboard API requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	LMSCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_lms_calls_total",
			Help: "LMS web service calls by function and outcome",
		},
		[]string{"function", "outcome"},
	)

	LMSCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_lms_call_duration_seconds",
			Help:    "Duration of LMS web service calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"function"},
	)

	CategoryLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_category_loads_total",
			Help: "Category loads by result source (live, cache, seed, empty)",
		},
		[]string{"category", "source"},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_refresh_duration_seconds",
			Help:    "Duration of full dashboard aggregation passes",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
	)

	ContentLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_content_loads_total",
			Help: "Activity content loads by kind and resolution tier",
		},
		[]string{"kind", "tier"},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration)
		prometheus.MustRegister(LMSCalls, LMSCallDuration)
		prometheus.MustRegister(CategoryLoads, RefreshDuration, ContentLoads)
	})
}

// ObserveLMSCall records one LMS round trip.
func ObserveLMSCall(function, outcome string, d time.Duration) {
	LMSCalls.WithLabelValues(function, outcome).Inc()
	LMSCallDuration.WithLabelValues(function).Observe(d.Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
