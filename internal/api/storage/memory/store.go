// Package memory is an in-memory storage.Store. Safe for concurrent access.
// Intended for unit testing and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps jobs and accepted tasks in maps keyed by identifier
type Store struct {
	mu sync.RWMutex

	jobs  map[string]*domain.Job
	tasks map[string]*domain.AcceptedTask
}

// New returns a new empty Store
func New() *Store {
	return &Store{
		jobs:  make(map[string]*domain.Job),
		tasks: make(map[string]*domain.AcceptedTask),
	}
}

func (s *Store) ListJobs(_ context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.UserEmail != "" && j.UserEmail != filter.UserEmail {
			continue
		}
		jobs = append(jobs, cloneJob(j))
	}

	sort.Slice(jobs, func(a, b int) bool {
		ja, jb := jobs[a], jobs[b]
		if !ja.PostedAt.Equal(jb.PostedAt) {
			if filter.Sort == storage.SortOldest {
				return ja.PostedAt.Before(jb.PostedAt)
			}
			return ja.PostedAt.After(jb.PostedAt)
		}
		if filter.Sort == storage.SortOldest {
			return ja.ID < jb.ID
		}
		return ja.ID > jb.ID
	})

	return jobs, nil
}

func (s *Store) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *Store) CreateJob(_ context.Context, job *domain.Job) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneJob(job)
	stored.ID = domain.NewID()
	s.jobs[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) UpdateJob(_ context.Context, id string, patch domain.JobPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	patch.Apply(j)
	return nil
}

func (s *Store) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
	return nil
}

func (s *Store) FindTask(_ context.Context, jobID, acceptedBy string) (*domain.AcceptedTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.JobID == jobID && t.AcceptedBy == acceptedBy {
			task := *t
			return &task, nil
		}
	}
	return nil, storage.ErrNotFound
}

// CreateTask checks the (jobID, acceptedBy) pair under the write lock, which
// gives the same guarantee as a unique index.
func (s *Store) CreateTask(_ context.Context, task *domain.AcceptedTask) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.JobID == task.JobID && t.AcceptedBy == task.AcceptedBy {
			return "", storage.ErrDuplicate
		}
	}

	stored := *task
	stored.ID = domain.NewID()
	s.tasks[stored.ID] = &stored
	return stored.ID, nil
}

func (s *Store) ListTasksByAcceptor(_ context.Context, email string) ([]*domain.AcceptedTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*domain.AcceptedTask, 0)
	for _, t := range s.tasks {
		if t.AcceptedBy == email {
			task := *t
			tasks = append(tasks, &task)
		}
	}

	sort.Slice(tasks, func(a, b int) bool {
		return tasks[a].ID < tasks[b].ID
	})

	return tasks, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	return nil
}

func (s *Store) DeleteTasksByJob(_ context.Context, jobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tasks {
		if t.JobID == jobID {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

// Migrate is a no-op; CreateTask enforces uniqueness itself
func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.Fields != nil {
		c.Fields = make(map[string]any, len(j.Fields))
		for k, v := range j.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}
