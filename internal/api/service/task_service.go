package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/events"
	"github.com/cuongbtq/freelance-marketplace/internal/api/metrics"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
)

// AcceptInput is a worker's request to take on a job
type AcceptInput struct {
	JobID      string
	Title      string
	AcceptedBy string
}

// TaskService accepts jobs as tasks and manages the accepted tasks
type TaskService struct {
	base
}

// NewTaskService creates a new TaskService
func NewTaskService(cfg *Config) *TaskService {
	return &TaskService{base: newBase(cfg)}
}

// Accept records that in.AcceptedBy took on in.JobID.
//
// The existing-task lookup is only a fast path. Two concurrent accepts can
// both pass it; the store's unique (jobId, acceptedBy) constraint decides
// and the loser gets a conflict.
func (s *TaskService) Accept(ctx context.Context, in AcceptInput) (string, error) {
	if in.JobID == "" || in.AcceptedBy == "" {
		s.metrics.TaskRejected(metrics.RejectInvalid)
		return "", domain.NewError(domain.ErrValidation, "Missing fields")
	}
	if !domain.IsValidID(in.JobID) {
		s.metrics.TaskRejected(metrics.RejectInvalid)
		return "", domain.NewError(domain.ErrInvalidID, "Invalid jobId")
	}

	job, err := s.store.GetJob(ctx, in.JobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.TaskRejected(metrics.RejectNotFound)
			return "", domain.NewError(domain.ErrNotFound, "Job not found")
		}
		s.metrics.TaskRejected(metrics.RejectStoreFailed)
		return "", fmt.Errorf("failed to look up job: %w", err)
	}

	if job.UserEmail == in.AcceptedBy {
		s.metrics.TaskRejected(metrics.RejectSelfAccept)
		return "", domain.NewError(domain.ErrForbidden, "You cannot accept your own job")
	}

	_, err = s.store.FindTask(ctx, in.JobID, in.AcceptedBy)
	switch {
	case err == nil:
		s.metrics.TaskRejected(metrics.RejectDuplicate)
		return "", alreadyAccepted()
	case !errors.Is(err, storage.ErrNotFound):
		s.metrics.TaskRejected(metrics.RejectStoreFailed)
		return "", fmt.Errorf("failed to look up accepted task: %w", err)
	}

	title := in.Title
	if title == "" {
		title = job.Title
	}

	task := &domain.AcceptedTask{
		JobID:      in.JobID,
		Title:      title,
		AcceptedBy: in.AcceptedBy,
		AcceptedAt: s.now(),
		Status:     domain.TaskStatusPending,
	}

	id, err := s.store.CreateTask(ctx, task)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.metrics.TaskRejected(metrics.RejectDuplicate)
			return "", alreadyAccepted()
		}
		s.metrics.TaskRejected(metrics.RejectStoreFailed)
		return "", fmt.Errorf("failed to create accepted task: %w", err)
	}

	s.logger.Info("Task accepted",
		slog.String("task_id", id),
		slog.String("job_id", in.JobID),
		slog.String("accepted_by", in.AcceptedBy),
	)
	s.metrics.TaskAccepted()
	s.publish(ctx, events.TypeTaskAccepted, map[string]any{
		"taskId":     id,
		"jobId":      in.JobID,
		"acceptedBy": in.AcceptedBy,
	})

	return id, nil
}

// ListByAcceptor returns the tasks accepted by email
func (s *TaskService) ListByAcceptor(ctx context.Context, email string) ([]*domain.AcceptedTask, error) {
	if email == "" {
		return nil, domain.NewError(domain.ErrValidation, "Missing email")
	}

	tasks, err := s.store.ListTasksByAcceptor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted tasks: %w", err)
	}
	return tasks, nil
}

// Remove deletes an accepted task, whether it was finished or cancelled.
// There is no ownership check and removing a missing task succeeds.
func (s *TaskService) Remove(ctx context.Context, id string) error {
	if !domain.IsValidID(id) {
		return domain.NewError(domain.ErrInvalidID, "Invalid Task ID")
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}

	s.publish(ctx, events.TypeTaskRemoved, map[string]any{"taskId": id})
	return nil
}

func alreadyAccepted() error {
	return domain.NewError(domain.ErrConflict, "You already accepted this job")
}
