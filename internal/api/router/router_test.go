package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/handler"
	"github.com/cuongbtq/freelance-marketplace/internal/api/metrics"
	"github.com/cuongbtq/freelance-marketplace/internal/api/service"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// brokenStore fails every call, as an unreachable database would
type brokenStore struct {
	*memory.Store
}

var errUnavailable = errors.New("connection refused")

func (brokenStore) ListJobs(context.Context, storage.JobFilter) ([]*domain.Job, error) {
	return nil, errUnavailable
}

func (brokenStore) CreateJob(context.Context, *domain.Job) (string, error) {
	return "", errUnavailable
}

func (brokenStore) GetJob(context.Context, string) (*domain.Job, error) {
	return nil, errUnavailable
}

func (brokenStore) Ping(context.Context) error {
	return errUnavailable
}

type testServer struct {
	engine  *gin.Engine
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, store storage.Store) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	serviceCfg := &service.Config{
		Store:   store,
		Metrics: m,
		Logger:  logger,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}

	deps := &handler.Dependencies{
		Logger:  logger,
		Store:   store,
		Jobs:    service.NewJobService(serviceCfg),
		Tasks:   service.NewTaskService(serviceCfg),
		Metrics: m,
	}

	return &testServer{
		engine: SetupRouter(deps, &Config{
			ServiceName:  "test-api",
			AllowOrigins: []string{"https://marketplace.example.com"},
		}),
		metrics: m,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJob(t *testing.T, doc map[string]any) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/jobs", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Acknowledged bool   `json:"acknowledged"`
		InsertedID   string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Acknowledged)
	return resp.InsertedID
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	msg, _ := body["message"].(string)
	return msg
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list), w.Body.String())
	return list
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, memory.New())

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, " Freelance Marketplace Server is Running Smoothly!", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, memory.New())
		w := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("store down", func(t *testing.T) {
		s := newTestServer(t, brokenStore{memory.New()})
		w := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"unhealthy"`)
	})
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestServer(t, memory.New())

	id := s.postJob(t, map[string]any{
		"title":     "Write API docs",
		"userEmail": "owner@example.com",
		"budget":    250,
		"postedAt":  "1999-12-31T00:00:00Z",
	})
	assert.True(t, domain.IsValidID(id))

	w := s.do(t, http.MethodGet, "/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var job map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, id, job["_id"])
	assert.Equal(t, "Write API docs", job["title"])
	assert.Equal(t, "owner@example.com", job["userEmail"])
	assert.Equal(t, float64(250), job["budget"])

	postedAt, err := time.Parse(time.RFC3339, job["postedAt"].(string))
	require.NoError(t, err)
	assert.Equal(t, 2024, postedAt.Year(), "postedAt is stamped by the server")
}

func TestCreateJob_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "missing title", body: map[string]any{"userEmail": "owner@example.com"}},
		{name: "missing userEmail", body: map[string]any{"title": "t"}},
		{name: "empty title", body: map[string]any{"title": "", "userEmail": "owner@example.com"}},
		{name: "malformed json", body: `{"title":`},
		{name: "not an object", body: `["title"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, memory.New())

			w := s.do(t, http.MethodPost, "/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Missing required fields", decodeMessage(t, w))
		})
	}
}

func TestListJobs_Sort(t *testing.T) {
	s := newTestServer(t, memory.New())
	first := s.postJob(t, map[string]any{"title": "a", "userEmail": "x@example.com"})
	second := s.postJob(t, map[string]any{"title": "b", "userEmail": "y@example.com"})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "default newest", query: "", want: []string{second, first}},
		{name: "newest", query: "?sort=newest", want: []string{second, first}},
		{name: "oldest", query: "?sort=oldest", want: []string{first, second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/jobs"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			list := decodeList(t, w)
			ids := make([]string, len(list))
			for i, j := range list {
				ids[i] = j["_id"].(string)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListJobs_Empty(t *testing.T) {
	s := newTestServer(t, memory.New())

	w := s.do(t, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetJob_Errors(t *testing.T) {
	s := newTestServer(t, memory.New())

	w := s.do(t, http.MethodGet, "/jobs/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Job ID", decodeMessage(t, w))

	w = s.do(t, http.MethodGet, "/jobs/"+domain.NewID(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job not found", decodeMessage(t, w))
}

func TestStoreFailuresAre500(t *testing.T) {
	s := newTestServer(t, brokenStore{memory.New()})

	tests := []struct {
		method  string
		path    string
		body    any
		message string
	}{
		{method: http.MethodGet, path: "/jobs", message: "Failed to fetch jobs"},
		{method: http.MethodGet, path: "/jobs/" + domain.NewID(), message: "Error fetching job details"},
		{method: http.MethodPost, path: "/jobs", body: map[string]any{"title": "t", "userEmail": "o@example.com"}, message: "Failed to add job"},
		{method: http.MethodGet, path: "/myAddedJobs?email=o@example.com", message: "Failed to fetch user jobs"},
		{method: http.MethodPost, path: "/accept-task", body: map[string]any{"jobId": domain.NewID(), "acceptedBy": "w@example.com"}, message: "Failed to accept task"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.message, decodeMessage(t, w))
			assert.NotContains(t, w.Body.String(), errUnavailable.Error())
		})
	}
}

func TestUpdateJob(t *testing.T) {
	s := newTestServer(t, memory.New())
	id := s.postJob(t, map[string]any{"title": "old", "userEmail": "owner@example.com"})

	w := s.do(t, http.MethodPut, "/jobs/"+id, map[string]any{"title": "new", "deadline": "2024-02-01"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Job updated successfully", decodeMessage(t, w))

	w = s.do(t, http.MethodGet, "/jobs/"+id, nil)
	var job map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "new", job["title"])
	assert.Equal(t, "owner@example.com", job["userEmail"])
	assert.Equal(t, "2024-02-01", job["deadline"])

	t.Run("invalid id", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/jobs/123", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid Job ID", decodeMessage(t, w))
	})

	t.Run("invalid id without body", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/jobs/123", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid Job ID", decodeMessage(t, w))
	})

	t.Run("blank title", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/jobs/"+id, map[string]any{"title": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/jobs/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/jobs/"+domain.NewID(), map[string]any{"title": "x"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDeleteJob_Cascade(t *testing.T) {
	s := newTestServer(t, memory.New())
	id := s.postJob(t, map[string]any{"title": "t", "userEmail": "owner@example.com"})

	w := s.do(t, http.MethodPost, "/accept-task", map[string]any{"jobId": id, "acceptedBy": "worker@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Job deleted successfully", decodeMessage(t, w))

	w = s.do(t, http.MethodGet, "/jobs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/my-accepted-tasks?email=worker@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))

	w = s.do(t, http.MethodDelete, "/jobs/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Job ID", decodeMessage(t, w))
}

func TestMyAddedJobs(t *testing.T) {
	s := newTestServer(t, memory.New())
	mine := s.postJob(t, map[string]any{"title": "mine", "userEmail": "me@example.com"})
	s.postJob(t, map[string]any{"title": "theirs", "userEmail": "them@example.com"})

	w := s.do(t, http.MethodGet, "/myAddedJobs?email=me@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, mine, list[0]["_id"])

	w = s.do(t, http.MethodGet, "/myAddedJobs", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing email", decodeMessage(t, w))
}

func TestAcceptTask(t *testing.T) {
	s := newTestServer(t, memory.New())
	jobID := s.postJob(t, map[string]any{"title": "Design a logo", "userEmail": "owner@example.com"})

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing fields",
			body:     map[string]any{"jobId": jobID},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Missing fields",
		},
		{
			name:     "malformed body",
			body:     `{"jobId":`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "Missing fields",
		},
		{
			name:     "invalid job id",
			body:     map[string]any{"jobId": "abc", "acceptedBy": "worker@example.com"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Invalid jobId",
		},
		{
			name:     "unknown job",
			body:     map[string]any{"jobId": domain.NewID(), "acceptedBy": "worker@example.com"},
			wantCode: http.StatusNotFound,
			wantMsg:  "Job not found",
		},
		{
			name:     "own job",
			body:     map[string]any{"jobId": jobID, "acceptedBy": "owner@example.com"},
			wantCode: http.StatusForbidden,
			wantMsg:  "You cannot accept your own job",
		},
		{
			name:     "first accept",
			body:     map[string]any{"jobId": jobID, "title": "Design a logo", "acceptedBy": "worker@example.com"},
			wantCode: http.StatusOK,
		},
		{
			name:     "second accept",
			body:     map[string]any{"jobId": jobID, "title": "Design a logo", "acceptedBy": "worker@example.com"},
			wantCode: http.StatusConflict,
			wantMsg:  "You already accepted this job",
		},
		{
			name:     "another worker",
			body:     map[string]any{"jobId": jobID, "acceptedBy": "other@example.com"},
			wantCode: http.StatusOK,
		},
	}

	// cases run in order; the conflict depends on the first accept
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/accept-task", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())

			if tt.wantMsg != "" {
				assert.JSONEq(t, `{"message":"`+tt.wantMsg+`"}`, w.Body.String())
				return
			}

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["acknowledged"])
			assert.True(t, domain.IsValidID(resp["insertedId"].(string)))
		})
	}

	w := s.do(t, http.MethodGet, "/my-accepted-tasks?email=worker@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, jobID, list[0]["jobId"])
	assert.Equal(t, "Design a logo", list[0]["title"])
	assert.Equal(t, "worker@example.com", list[0]["acceptedBy"])
	assert.Equal(t, "pending", list[0]["status"])
	assert.NotEmpty(t, list[0]["acceptedAt"])
}

func TestMyAcceptedTasks(t *testing.T) {
	s := newTestServer(t, memory.New())

	w := s.do(t, http.MethodGet, "/my-accepted-tasks", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing email", decodeMessage(t, w))

	w = s.do(t, http.MethodGet, "/my-accepted-tasks?email=nobody@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPerUserListings_Query(t *testing.T) {
	s := newTestServer(t, memory.New())
	s.postJob(t, map[string]any{"title": "mine", "userEmail": "me@example.com"})

	for _, path := range []string{"/myAddedJobs", "/my-accepted-tasks"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(t, http.MethodGet, path+"?email=", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Missing email", decodeMessage(t, w))

			w = s.do(t, http.MethodGet, path+"?email=me@example.com&sort=asc", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRemoveTask(t *testing.T) {
	s := newTestServer(t, memory.New())
	jobID := s.postJob(t, map[string]any{"title": "t", "userEmail": "owner@example.com"})

	w := s.do(t, http.MethodPost, "/accept-task", map[string]any{"jobId": jobID, "acceptedBy": "worker@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	taskID := resp["insertedId"].(string)

	w = s.do(t, http.MethodDelete, "/my-accepted-tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Task removed successfully", decodeMessage(t, w))

	// removing again still succeeds
	w = s.do(t, http.MethodDelete, "/my-accepted-tasks/"+taskID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/my-accepted-tasks/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Task ID", decodeMessage(t, w))

	// the job survives its task
	w = s.do(t, http.MethodGet, "/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, memory.New())

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "configured origin", origin: "https://marketplace.example.com", allowed: true},
		{name: "dev origin", origin: DevOrigin, allowed: true},
		{name: "foreign origin", origin: "https://evil.example.com", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/jobs", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)

			if tt.allowed {
				assert.Equal(t, http.StatusNoContent, w.Code)
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Equal(t, http.StatusForbidden, w.Code)
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := CORSConfig([]string{"https://a.example.com", "", DevOrigin, "https://a.example.com"})
	assert.Equal(t, []string{"https://a.example.com", DevOrigin}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)

	cfg = CORSConfig(nil)
	assert.Equal(t, []string{DevOrigin}, cfg.AllowOrigins)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = s.do(t, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, memory.New())
	jobID := s.postJob(t, map[string]any{"title": "t", "userEmail": "owner@example.com"})
	s.do(t, http.MethodPost, "/accept-task", map[string]any{"jobId": jobID, "acceptedBy": "owner@example.com"})

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "freelance_api_jobs_created_total 1")
	assert.Contains(t, body, `freelance_api_task_accept_rejected_total{reason="self_accept"} 1`)
	assert.Contains(t, body, `freelance_api_http_requests_total{method="POST",route="/jobs",status="200"} 1`)
}
