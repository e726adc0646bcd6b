package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.JobCreated()
	m.JobCreated()
	m.JobDeleted()
	m.TaskAccepted()
	m.TaskRejected(RejectSelfAccept)
	m.TaskRejected(RejectDuplicate)
	m.TaskRejected(RejectDuplicate)
	m.EventPublishFailed("job.created")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobsCreatedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobsDeletedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tasksAcceptedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.acceptRejectedTotal.WithLabelValues(RejectSelfAccept)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.acceptRejectedTotal.WithLabelValues(RejectDuplicate)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventPublishErrors.WithLabelValues("job.created")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.JobCreated()
		m.JobDeleted()
		m.TaskAccepted()
		m.TaskRejected(RejectInvalid)
		m.EventPublishFailed("job.created")
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	// path params collapse into the route template
	assert.Equal(t, float64(3), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/jobs/:id", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequestDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.TaskAccepted()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "freelance_api_tasks_accepted_total 1")
	assert.Contains(t, body, "go_goroutines")
	assert.True(t, strings.Contains(body, "# HELP freelance_api_jobs_created_total"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.JobCreated()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.jobsCreatedTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.jobsCreatedTotal))
	assert.NotSame(t, a.Registry(), b.Registry())
}
