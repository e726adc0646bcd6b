package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/freelance-marketplace/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// ListJobs handles GET /jobs
// Lists all jobs ordered by postedAt, newest first unless sort=oldest
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Invalid query parameters"})
		return
	}

	jobs, err := h.jobs.List(c.Request.Context(), req.Sort)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch jobs")
		return
	}

	c.JSON(http.StatusOK, nonNil(jobs))
}

// GetJob handles GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching job details")
		return
	}

	c.JSON(http.StatusOK, job)
}

// CreateJob handles POST /jobs
// The body is a free-form job document; title and userEmail are required
func (h *JobHandler) CreateJob(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Missing required fields"})
		return
	}

	id, err := h.jobs.Create(c.Request.Context(), doc)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add job")
		return
	}

	c.JSON(http.StatusOK, dto.InsertResponse{Acknowledged: true, InsertedID: id})
}

// UpdateJob handles PUT /jobs/:id
// Merges the body into the stored job
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id := c.Param("id")

	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Invalid request body"})
		return
	}

	if err := h.jobs.Update(c.Request.Context(), id, doc); err != nil {
		respondError(c, h.logger, err, "Failed to update job")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Job updated successfully"})
}

// DeleteJob handles DELETE /jobs/:id
// Deletes the job together with every task accepted for it
func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.jobs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete job")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Job deleted successfully"})
}

// ListMyJobs handles GET /myAddedJobs?email=
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	var q dto.EmailQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Invalid query parameters"})
		return
	}

	jobs, err := h.jobs.ListByOwner(c.Request.Context(), q.Email)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch user jobs")
		return
	}

	c.JSON(http.StatusOK, nonNil(jobs))
}

// nonNil makes empty results encode as [] instead of null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
