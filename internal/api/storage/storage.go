package storage

import (
	"context"
	"errors"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
)

// Collection names shared by the document store backends
const (
	CollectionJobs          = "jobs"
	CollectionAcceptedTasks = "acceptedTasks"
)

var (
	// ErrNotFound is returned by lookups that match no record
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("storage: duplicate record")
)

// SortOrder is the postedAt ordering of a job listing
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
)

// ParseSortOrder maps the sort query value to a SortOrder.
// Anything other than "oldest" sorts newest first.
func ParseSortOrder(s string) SortOrder {
	if s == "oldest" {
		return SortOldest
	}
	return SortNewest
}

// JobFilter restricts a job listing
type JobFilter struct {
	UserEmail string
	Sort      SortOrder
}

// JobStore persists jobs. Identifiers passed in are already validated.
type JobStore interface {
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error)
	// GetJob returns ErrNotFound when no job matches
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	// CreateJob stores the job and returns its generated identifier
	CreateJob(ctx context.Context, job *domain.Job) (string, error)
	// UpdateJob applies the patch; a missing job is not an error
	UpdateJob(ctx context.Context, id string, patch domain.JobPatch) error
	// DeleteJob removes the job; a missing job is not an error
	DeleteJob(ctx context.Context, id string) error
}

// TaskStore persists accepted tasks
type TaskStore interface {
	// FindTask returns ErrNotFound when the pair has no task
	FindTask(ctx context.Context, jobID, acceptedBy string) (*domain.AcceptedTask, error)
	// CreateTask returns ErrDuplicate when (jobID, acceptedBy) already exists
	CreateTask(ctx context.Context, task *domain.AcceptedTask) (string, error)
	ListTasksByAcceptor(ctx context.Context, email string) ([]*domain.AcceptedTask, error)
	DeleteTask(ctx context.Context, id string) error
	// DeleteTasksByJob removes every task referencing the job
	DeleteTasksByJob(ctx context.Context, jobID string) (int64, error)
}

// Store is the storage capability injected into the services
type Store interface {
	JobStore
	TaskStore

	// Migrate creates the indexes and constraints the services rely on
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
