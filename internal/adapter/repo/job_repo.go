package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Migrate creates the jobs table when it does not exist yet.
func (r *JobRepositoryPG) Migrate(ctx context.Context) error {
	for _, q := range []string{sqlinline.QCreateJobsTable, sqlinline.QCreateJobsCreatedAtIndex} {
		if _, err := r.sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate jobs: %w", err)
		}
	}
	return nil
}

// Insert persists a new job record.
func (r *JobRepositoryPG) Insert(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.Prompt,
		job.Model,
		job.OriginalImageRef,
		string(job.Status),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns one creation-descending window plus the total row count.
func (r *JobRepositoryPG) List(ctx context.Context, offset, limit int) (*domain.JobPage, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountJobs).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	page := &domain.JobPage{Items: []domain.Job{}, Total: total}
	if limit <= 0 || offset >= total {
		return page, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListJobs, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		page.Items = append(page.Items, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return page, nil
}

// Transition applies a compare-and-set status change in a single statement so
// concurrent readers see either the old or the new row, never a mix.
func (r *JobRepositoryPG) Transition(ctx context.Context, jobID string, t domain.Transition) (*domain.Job, error) {
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QTransitionJob,
		jobID,
		string(t.From),
		string(t.To),
		t.Patch.ResultImageRef,
		t.Patch.ErrorMessage,
		t.Patch.ExternalRequestID,
		at,
	))
	if err == nil {
		return job, nil
	}
	if !infra.IsNoRows(err) {
		return nil, fmt.Errorf("transition job: %w", err)
	}

	var current string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectJobStatus, jobID).Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("%w: job %s: %w", domain.ErrInvalidTransition, jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("transition job: %w", err)
	}
	return nil, fmt.Errorf("%w: job %s is %s, want %s", domain.ErrInvalidTransition, jobID, current, t.From)
}

// Delete removes the job record.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteJob, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *JobRepositoryPG) Ping(ctx context.Context) error {
	return r.sql.Ping(ctx)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var status string
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.Model,
		&job.OriginalImageRef,
		&job.ResultImageRef,
		&status,
		&job.ErrorMessage,
		&job.ExternalRequestID,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if !job.Status.Valid() {
		return nil, fmt.Errorf("job %s has unknown status %q", job.ID, status)
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
