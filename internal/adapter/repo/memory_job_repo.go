package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
)

// MemoryJobRepository keeps jobs in process memory. It backs JOB_STORE=memory
// and the test suites. All reads return copies so callers never observe a
// record while a transition is being applied.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*memoryJob
	seq  uint64
}

type memoryJob struct {
	job domain.Job
	seq uint64
}

// NewMemoryJobRepository returns an empty in-memory repository.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*memoryJob)}
}

func (r *MemoryJobRepository) Insert(ctx context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("insert job: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("insert job: duplicate id %s", job.ID)
	}
	r.seq++
	r.jobs[job.ID] = &memoryJob{job: *job, seq: r.seq}
	return nil
}

func (r *MemoryJobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return stored.job.Clone(), nil
}

func (r *MemoryJobRepository) List(ctx context.Context, offset, limit int) (*domain.JobPage, error) {
	r.mu.RLock()
	all := make([]memoryJob, 0, len(r.jobs))
	for _, stored := range r.jobs {
		all = append(all, *stored)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].job.CreatedAt.Equal(all[j].job.CreatedAt) {
			return all[i].job.CreatedAt.After(all[j].job.CreatedAt)
		}
		return all[i].seq > all[j].seq
	})

	page := &domain.JobPage{Items: []domain.Job{}, Total: len(all)}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(all) {
		return page, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	for _, stored := range all[offset:end] {
		page.Items = append(page.Items, stored.job)
	}
	return page, nil
}

func (r *MemoryJobRepository) Transition(ctx context.Context, jobID string, t domain.Transition) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s: %w", domain.ErrInvalidTransition, jobID, domain.ErrNotFound)
	}
	if stored.job.Status != t.From {
		return nil, fmt.Errorf("%w: job %s is %s, want %s", domain.ErrInvalidTransition, jobID, stored.job.Status, t.From)
	}

	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.Before(stored.job.UpdatedAt) {
		at = stored.job.UpdatedAt
	}

	next := stored.job
	next.Status = t.To
	next.UpdatedAt = at
	if t.Patch.ResultImageRef != "" {
		next.ResultImageRef = t.Patch.ResultImageRef
	}
	if t.Patch.ErrorMessage != "" {
		next.ErrorMessage = t.Patch.ErrorMessage
	}
	if t.Patch.ExternalRequestID != "" {
		next.ExternalRequestID = t.Patch.ExternalRequestID
	}
	stored.job = next
	return next.Clone(), nil
}

func (r *MemoryJobRepository) Delete(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[jobID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.jobs, jobID)
	return nil
}

func (r *MemoryJobRepository) Ping(ctx context.Context) error {
	return nil
}

// Len reports how many jobs are stored.
func (r *MemoryJobRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

var _ domain.JobRepository = (*MemoryJobRepository)(nil)
