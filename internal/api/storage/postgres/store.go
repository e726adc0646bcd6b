// Package postgres implements storage.Store on PostgreSQL. Free-form job
// fields live in a JSONB column and accepted_tasks has a unique
// (job_id, accepted_by) constraint.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
	"github.com/cuongbtq/freelance-marketplace/shared/postgresql"
)

var _ storage.Store = (*Store)(nil)

// uniqueViolation is the SQLSTATE of a unique constraint failure
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	user_email TEXT NOT NULL,
	posted_at  TIMESTAMPTZ NOT NULL,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS jobs_posted_at_idx ON jobs (posted_at DESC);
CREATE INDEX IF NOT EXISTS jobs_user_email_idx ON jobs (user_email);

CREATE TABLE IF NOT EXISTS accepted_tasks (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	accepted_by TEXT NOT NULL,
	accepted_at TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL,
	CONSTRAINT accepted_tasks_job_acceptor_key UNIQUE (job_id, accepted_by)
);
CREATE INDEX IF NOT EXISTS accepted_tasks_accepted_by_idx ON accepted_tasks (accepted_by);
`

type jobRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	UserEmail string    `db:"user_email"`
	PostedAt  time.Time `db:"posted_at"`
	Fields    []byte    `db:"fields"`
}

type taskRow struct {
	ID         string    `db:"id"`
	JobID      string    `db:"job_id"`
	Title      string    `db:"title"`
	AcceptedBy string    `db:"accepted_by"`
	AcceptedAt time.Time `db:"accepted_at"`
	Status     string    `db:"status"`
}

// Store is the PostgreSQL storage backend
type Store struct {
	client *postgresql.Client
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a Store on the client's connection pool. Close closes the client.
func New(client *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		db:     client.GetDB(),
		logger: logger,
	}
}

func (s *Store) ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	query := `
		SELECT id, title, user_email, posted_at, fields
		FROM jobs
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.UserEmail != "" {
		query += " AND user_email = $1"
		args = append(args, filter.UserEmail)
	}

	if filter.Sort == storage.SortOldest {
		query += " ORDER BY posted_at ASC, id ASC"
	} else {
		query += " ORDER BY posted_at DESC, id DESC"
	}

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for i := range rows {
		job, err := fromJobRow(&rows[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		SELECT id, title, user_email, posted_at, fields
		FROM jobs
		WHERE id = $1
	`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return fromJobRow(&row)
}

func (s *Store) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	fields, err := marshalFields(job.Fields)
	if err != nil {
		return "", err
	}

	id := domain.NewID()
	query := `
		INSERT INTO jobs (id, title, user_email, posted_at, fields)
		VALUES ($1, $2, $3, $4, $5::jsonb)
	`
	if _, err := s.db.ExecContext(ctx, query, id, job.Title, job.UserEmail, job.PostedAt, fields); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateJob(ctx context.Context, id string, patch domain.JobPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	fields, err := marshalFields(patch.Fields)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET title = COALESCE($2, title),
			user_email = COALESCE($3, user_email),
			fields = fields || $4::jsonb
		WHERE id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, id, patch.Title, patch.UserEmail, fields); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *Store) FindTask(ctx context.Context, jobID, acceptedBy string) (*domain.AcceptedTask, error) {
	query := `
		SELECT id, job_id, title, accepted_by, accepted_at, status
		FROM accepted_tasks
		WHERE job_id = $1 AND accepted_by = $2
	`

	var row taskRow
	if err := s.db.GetContext(ctx, &row, query, jobID, acceptedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return fromTaskRow(&row), nil
}

func (s *Store) CreateTask(ctx context.Context, task *domain.AcceptedTask) (string, error) {
	row := taskRow{
		ID:         domain.NewID(),
		JobID:      task.JobID,
		Title:      task.Title,
		AcceptedBy: task.AcceptedBy,
		AcceptedAt: task.AcceptedAt,
		Status:     task.Status,
	}

	query := `
		INSERT INTO accepted_tasks (id, job_id, title, accepted_by, accepted_at, status)
		VALUES (:id, :job_id, :title, :accepted_by, :accepted_at, :status)
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return "", storage.ErrDuplicate
		}
		return "", fmt.Errorf("failed to create task: %w", err)
	}
	return row.ID, nil
}

func (s *Store) ListTasksByAcceptor(ctx context.Context, email string) ([]*domain.AcceptedTask, error) {
	query := `
		SELECT id, job_id, title, accepted_by, accepted_at, status
		FROM accepted_tasks
		WHERE accepted_by = $1
		ORDER BY id ASC
	`

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, email); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*domain.AcceptedTask, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, fromTaskRow(&rows[i]))
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accepted_tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Store) DeleteTasksByJob(ctx context.Context, jobID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accepted_tasks WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks for job: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Migrate creates the tables, indexes and the unique accept constraint
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.logger.Info("PostgreSQL schema ensured")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.client.Close()
}

func fromJobRow(row *jobRow) (*domain.Job, error) {
	fields := map[string]any{}
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields of job %s: %w", row.ID, err)
		}
	}
	return &domain.Job{
		ID:        row.ID,
		Title:     row.Title,
		UserEmail: row.UserEmail,
		PostedAt:  row.PostedAt.UTC(),
		Fields:    fields,
	}, nil
}

func fromTaskRow(row *taskRow) *domain.AcceptedTask {
	return &domain.AcceptedTask{
		ID:         row.ID,
		JobID:      row.JobID,
		Title:      row.Title,
		AcceptedBy: row.AcceptedBy,
		AcceptedAt: row.AcceptedAt.UTC(),
		Status:     row.Status,
	}
}

func marshalFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode job fields: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
