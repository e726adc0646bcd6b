package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "freelance"
	subsystem = "api"
)

// Reasons an accept request is turned down
const (
	RejectInvalid     = "invalid"
	RejectNotFound    = "job_not_found"
	RejectSelfAccept  = "self_accept"
	RejectDuplicate   = "duplicate"
	RejectStoreFailed = "store_error"
)

// Metrics owns a private registry so tests can create as many as they like.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	jobsCreatedTotal    prometheus.Counter
	jobsDeletedTotal    prometheus.Counter
	tasksAcceptedTotal  prometheus.Counter
	acceptRejectedTotal *prometheus.CounterVec
	eventPublishErrors  *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		jobsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_created_total",
			Help:      "Total number of jobs posted.",
		}),
		jobsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_deleted_total",
			Help:      "Total number of job delete requests served.",
		}),
		tasksAcceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_accepted_total",
			Help:      "Total number of jobs accepted as tasks.",
		}),
		acceptRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_accept_rejected_total",
				Help:      "Accept requests turned down, by reason.",
			},
			[]string{"reason"},
		),
		eventPublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "event_publish_errors_total",
				Help:      "Domain events that could not be published, by type.",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.jobsCreatedTotal,
		m.jobsDeletedTotal,
		m.tasksAcceptedTotal,
		m.acceptRejectedTotal,
		m.eventPublishErrors,
	)

	return m
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) JobCreated() {
	if m == nil {
		return
	}
	m.jobsCreatedTotal.Inc()
}

func (m *Metrics) JobDeleted() {
	if m == nil {
		return
	}
	m.jobsDeletedTotal.Inc()
}

func (m *Metrics) TaskAccepted() {
	if m == nil {
		return
	}
	m.tasksAcceptedTotal.Inc()
}

func (m *Metrics) TaskRejected(reason string) {
	if m == nil {
		return
	}
	m.acceptRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventPublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventPublishErrors.WithLabelValues(eventType).Inc()
}
