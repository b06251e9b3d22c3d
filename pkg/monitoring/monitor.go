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
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"method", "endpoint"},
	)

	NotesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careiq_notes_created_total",
			Help: "Progress notes created, by source and restrictive-practice flag",
		},
		[]string{"source", "rp_flag"},
	)

	ClassifierResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careiq_classifier_results_total",
			Help: "Restrictive-practice classifications, by backend (ai or fallback)",
		},
		[]string{"backend"},
	)

	AssistantQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careiq_assistant_queries_total",
			Help: "Assistant questions, by outcome (answered or fallback)",
		},
		[]string{"outcome"},
	)

	TrainingNudges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careiq_training_nudges_total",
			Help: "Training status evaluations that produced a nudge, by priority",
		},
		[]string{"priority"},
	)

	ModuleCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careiq_module_completions_total",
			Help: "Training module completion requests, by module and whether a record was created",
		},
		[]string{"module", "result"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			NotesCreated,
			ClassifierResults,
			AssistantQueries,
			TrainingNudges,
			ModuleCompletions,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
