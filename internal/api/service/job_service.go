package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/events"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
)

// JobService is the job repository: CRUD and filtered listing of job postings
type JobService struct {
	base
}

// NewJobService creates a new JobService
func NewJobService(cfg *Config) *JobService {
	return &JobService{base: newBase(cfg)}
}

// List returns every job ordered by postedAt; sort "oldest" is ascending,
// anything else descending
func (s *JobService) List(ctx context.Context, sort string) ([]*domain.Job, error) {
	jobs, err := s.store.ListJobs(ctx, storage.JobFilter{Sort: storage.ParseSortOrder(sort)})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Get returns a single job
func (s *JobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	if !domain.IsValidID(id) {
		return nil, domain.NewError(domain.ErrInvalidID, "Invalid Job ID")
	}

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Job not found")
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Create validates and stores a new job, returning its identifier
func (s *JobService) Create(ctx context.Context, doc map[string]any) (string, error) {
	job, err := domain.NewJob(doc, s.now())
	if err != nil {
		return "", err
	}

	id, err := s.store.CreateJob(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", id),
		slog.String("user_email", job.UserEmail),
	)
	s.metrics.JobCreated()
	s.publish(ctx, events.TypeJobCreated, map[string]any{
		"jobId":     id,
		"title":     job.Title,
		"userEmail": job.UserEmail,
	})

	return id, nil
}

// Update merges the fields of doc into the job. Updating a job that does
// not exist succeeds without effect.
func (s *JobService) Update(ctx context.Context, id string, doc map[string]any) error {
	if !domain.IsValidID(id) {
		return domain.NewError(domain.ErrInvalidID, "Invalid Job ID")
	}

	patch, err := domain.NewJobPatch(doc)
	if err != nil {
		return err
	}

	if err := s.store.UpdateJob(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if !patch.IsEmpty() {
		s.publish(ctx, events.TypeJobUpdated, map[string]any{"jobId": id})
	}
	return nil
}

// Delete removes the job and then every task accepted for it. The two
// deletes are not atomic; a failure between them leaves orphaned tasks.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if !domain.IsValidID(id) {
		return domain.NewError(domain.ErrInvalidID, "Invalid Job ID")
	}

	if err := s.store.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	removed, err := s.store.DeleteTasksByJob(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete accepted tasks of job: %w", err)
	}

	s.logger.Info("Job deleted",
		slog.String("job_id", id),
		slog.Int64("tasks_removed", removed),
	)
	s.metrics.JobDeleted()
	s.publish(ctx, events.TypeJobDeleted, map[string]any{
		"jobId":        id,
		"tasksRemoved": removed,
	})

	return nil
}

// ListByOwner returns the jobs posted by email
func (s *JobService) ListByOwner(ctx context.Context, email string) ([]*domain.Job, error) {
	if email == "" {
		return nil, domain.NewError(domain.ErrValidation, "Missing email")
	}

	jobs, err := s.store.ListJobs(ctx, storage.JobFilter{UserEmail: email})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs of owner: %w", err)
	}
	return jobs, nil
}
