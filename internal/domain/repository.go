package domain

import "context"

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Insert(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// List returns jobs ordered by creation time, newest first. Total counts
	// every stored job regardless of the window.
	List(ctx context.Context, offset, limit int) (*JobPage, error)
	// Transition atomically moves a job from t.From to t.To and applies the
	// patch. It fails with ErrInvalidTransition when the stored status is not
	// t.From, and additionally matches ErrNotFound when the job is absent.
	Transition(ctx context.Context, jobID string, t Transition) (*Job, error)
	Delete(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error
}
