package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/freelance-marketplace/internal/api/dto"
	"github.com/cuongbtq/freelance-marketplace/internal/api/service"
	"github.com/gin-gonic/gin"
)

// AcceptTask handles POST /accept-task
func (h *TaskHandler) AcceptTask(c *gin.Context) {
	var req dto.AcceptTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Missing fields"})
		return
	}

	id, err := h.tasks.Accept(c.Request.Context(), service.AcceptInput{
		JobID:      req.JobID,
		Title:      req.Title,
		AcceptedBy: req.AcceptedBy,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to accept task")
		return
	}

	c.JSON(http.StatusOK, dto.InsertResponse{Acknowledged: true, InsertedID: id})
}

// ListMyTasks handles GET /my-accepted-tasks?email=
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	var q dto.EmailQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Invalid query parameters"})
		return
	}

	tasks, err := h.tasks.ListByAcceptor(c.Request.Context(), q.Email)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch accepted tasks")
		return
	}

	c.JSON(http.StatusOK, nonNil(tasks))
}

// RemoveTask handles DELETE /my-accepted-tasks/:id
// Used both when a task is finished and when it is cancelled
func (h *TaskHandler) RemoveTask(c *gin.Context) {
	if err := h.tasks.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to remove task")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task removed successfully"})
}
