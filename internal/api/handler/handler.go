package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/dto"
	"github.com/cuongbtq/freelance-marketplace/internal/api/metrics"
	"github.com/cuongbtq/freelance-marketplace/internal/api/service"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Store   storage.Store
	Jobs    *service.JobService
	Tasks   *service.TaskService
	Metrics *metrics.Metrics
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	jobs   *service.JobService
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
	}
}

// TaskHandler handles accepted-task HTTP requests
type TaskHandler struct {
	logger *slog.Logger
	tasks  *service.TaskService
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(deps *Dependencies) *TaskHandler {
	return &TaskHandler{
		logger: deps.Logger,
		tasks:  deps.Tasks,
	}
}

// respondError writes client errors with their own message and status.
// Anything else is logged and answered with 500 and fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		c.JSON(statusFor(derr.Kind), dto.MessageResponse{Message: derr.Message})
		return
	}

	logger.Error(fallback,
		slog.String("error", err.Error()),
		slog.String("request_id", c.GetString(RequestIDKey)),
		slog.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: fallback})
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, domain.ErrValidation), errors.Is(kind, domain.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(kind, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
