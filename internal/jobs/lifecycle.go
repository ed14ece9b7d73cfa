// Package jobs owns the image edit job lifecycle and its background dispatch.
//
// A job moves pending → processing → completed | failed. Every transition is
// a compare-and-set against the repository, so a second dispatcher racing for
// the same job, or a dispatcher finishing after the job was deleted, gets
// domain.ErrInvalidTransition instead of overwriting state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

// Observer is notified with a copy of the job after it is created and after
// every applied transition.
type Observer func(job domain.Job)

// Manager applies lifecycle transitions on top of a JobRepository.
type Manager struct {
	repo      domain.JobRepository
	assets    storage.AssetStore
	logger    infra.Logger
	now       func() time.Time
	observers []Observer
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithObserver registers fn to receive job snapshots.
func WithObserver(fn Observer) Option {
	return func(m *Manager) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// NewManager wires the repository and the source asset store.
func NewManager(repo domain.JobRepository, assets storage.AssetStore, logger infra.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		assets: assets,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateParams describes a new job. ID may be pre-allocated by the caller so
// the source image can be stored under it before the record exists.
type CreateParams struct {
	ID       string
	Prompt   string
	Model    string
	ImageRef string
}

// NewID allocates a job identifier.
func NewID() string {
	return uuid.NewString()
}

// Create persists a pending job.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*domain.Job, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = NewID()
	}
	now := m.now()
	job := &domain.Job{
		ID:               id,
		Prompt:           p.Prompt,
		Model:            p.Model,
		OriginalImageRef: p.ImageRef,
		Status:           domain.JobStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.repo.Insert(ctx, job); err != nil {
		return nil, err
	}
	m.logger.Info().Str("job_id", id).Str("model", p.Model).Msg("job created")
	m.notify(job)
	return job.Clone(), nil
}

// MarkProcessing moves a pending job to processing.
func (m *Manager) MarkProcessing(ctx context.Context, id string) (*domain.Job, error) {
	return m.transition(ctx, id, domain.JobStatusPending, domain.JobStatusProcessing, domain.JobPatch{})
}

// Complete records the result of a processing job.
func (m *Manager) Complete(ctx context.Context, id, resultRef, externalRequestID string) (*domain.Job, error) {
	resultRef = strings.TrimSpace(resultRef)
	externalRequestID = strings.TrimSpace(externalRequestID)
	if resultRef == "" || externalRequestID == "" {
		return nil, fmt.Errorf("%w: completing job %s requires a result reference and an external request id", domain.ErrInvalidInput, id)
	}
	return m.transition(ctx, id, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobPatch{
		ResultImageRef:    resultRef,
		ExternalRequestID: externalRequestID,
	})
}

// Fail records why a processing job could not be completed.
func (m *Manager) Fail(ctx context.Context, id, message string) (*domain.Job, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return m.transition(ctx, id, domain.JobStatusProcessing, domain.JobStatusFailed, domain.JobPatch{ErrorMessage: message})
}

func (m *Manager) transition(ctx context.Context, id string, from, to domain.JobStatus, patch domain.JobPatch) (*domain.Job, error) {
	job, err := m.repo.Transition(ctx, id, domain.Transition{From: from, To: to, Patch: patch, At: m.now()})
	if err != nil {
		return nil, err
	}
	m.logger.Info().
		Str("job_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("job transition")
	m.notify(job)
	return job, nil
}

// Get returns a job by id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Job, error) {
	return m.repo.GetByID(ctx, id)
}

// List returns a creation-descending page of jobs.
func (m *Manager) List(ctx context.Context, offset, limit int) (*domain.JobPage, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}
	return m.repo.List(ctx, offset, limit)
}

// Delete removes the job's source image and then its record. A source image
// that is already gone does not stop the record from being deleted.
func (m *Manager) Delete(ctx context.Context, id string) error {
	job, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.OriginalImageRef != "" && m.assets != nil {
		if err := m.assets.Delete(ctx, job.OriginalImageRef); err != nil {
			return fmt.Errorf("delete source image %s: %w", job.OriginalImageRef, err)
		}
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	if !job.Status.Terminal() {
		m.logger.Warn().Str("job_id", id).Str("status", string(job.Status)).Msg("job deleted before finishing; a late result will be dropped")
	} else {
		m.logger.Info().Str("job_id", id).Msg("job deleted")
	}
	return nil
}

// Ping reports whether the job store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.repo.Ping(ctx)
}

func (m *Manager) notify(job *domain.Job) {
	for _, fn := range m.observers {
		fn(*job)
	}
}

// IsGone reports whether err means the job record no longer exists.
func IsGone(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
