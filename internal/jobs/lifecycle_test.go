package jobs

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/adapter/repo"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

// statusRecorder collects every snapshot the manager publishes, per job.
type statusRecorder struct {
	mu   sync.Mutex
	seen map[string][]domain.Job
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{seen: map[string][]domain.Job{}}
}

func (r *statusRecorder) observe(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[job.ID] = append(r.seen[job.ID], job)
}

func (r *statusRecorder) statuses(id string) []domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.JobStatus, 0, len(r.seen[id]))
	for _, job := range r.seen[id] {
		out = append(out, job.Status)
	}
	return out
}

func (r *statusRecorder) snapshots(id string) []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Job(nil), r.seen[id]...)
}

type testEnv struct {
	repo     *repo.MemoryJobRepository
	assets   *storage.FileStore
	manager  *Manager
	recorder *statusRecorder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	assets, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	rec := newStatusRecorder()
	r := repo.NewMemoryJobRepository()
	opts = append([]Option{WithObserver(rec.observe)}, opts...)
	return &testEnv{
		repo:     r,
		assets:   assets,
		manager:  NewManager(r, assets, zerolog.New(io.Discard), opts...),
		recorder: rec,
	}
}

func (e *testEnv) createJob(t *testing.T, prompt, ext string) *domain.Job {
	t.Helper()
	id := NewID()
	key, err := e.assets.Write(context.Background(), id+ext, []byte("source-bytes"))
	if err != nil {
		t.Fatalf("write asset: %v", err)
	}
	job, err := e.manager.Create(context.Background(), CreateParams{ID: id, Prompt: prompt, Model: "seedream", ImageRef: key})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return job
}

func equalStatuses(got, want []domain.JobStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCreateProducesPendingJob(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "remove background", ".jpg")

	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.ID == "" || !job.CreatedAt.Equal(job.UpdatedAt) {
		t.Fatalf("unexpected job: %+v", job)
	}
	other := env.createJob(t, "another", ".png")
	if other.ID == job.ID {
		t.Fatalf("job ids must be unique")
	}
}

func TestCreateAllocatesIDWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	job, err := env.manager.Create(context.Background(), CreateParams{Prompt: "p", ImageRef: "x.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestLifecycleCompletedPath(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "p", ".jpg")
	ctx := context.Background()

	if _, err := env.manager.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	done, err := env.manager.Complete(ctx, job.ID, "https://x/1", "req-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.ResultImageRef != "https://x/1" || done.ExternalRequestID != "req-1" || done.ErrorMessage != "" {
		t.Fatalf("unexpected completed job: %+v", done)
	}
	want := []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusCompleted}
	if got := env.recorder.statuses(job.ID); !equalStatuses(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
}

func TestLifecycleFailedPath(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "p", ".jpg")
	ctx := context.Background()

	if _, err := env.manager.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	failed, err := env.manager.Fail(ctx, job.ID, "provider exploded")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if failed.ErrorMessage != "provider exploded" || failed.ResultImageRef != "" || failed.ExternalRequestID != "" {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
}

func TestFailWithoutMessageStillRecordsOne(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "p", ".jpg")
	ctx := context.Background()
	env.manager.MarkProcessing(ctx, job.ID)

	failed, err := env.manager.Fail(ctx, job.ID, "  ")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if failed.ErrorMessage == "" {
		t.Fatalf("failed job must carry an error message")
	}
}

func TestInvalidTransitionsAreReported(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t, "p", ".jpg")

	if _, err := env.manager.Complete(ctx, job.ID, "https://x/1", "req"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("complete from pending: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.manager.Fail(ctx, job.ID, "boom"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("fail from pending: expected ErrInvalidTransition, got %v", err)
	}

	env.manager.MarkProcessing(ctx, job.ID)
	if _, err := env.manager.MarkProcessing(ctx, job.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second mark processing: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.manager.Complete(ctx, job.ID, "https://x/1", "req"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	terminal := []func() error{
		func() error { _, err := env.manager.MarkProcessing(ctx, job.ID); return err },
		func() error { _, err := env.manager.Complete(ctx, job.ID, "https://x/2", "req-2"); return err },
		func() error { _, err := env.manager.Fail(ctx, job.ID, "late"); return err },
	}
	for i, attempt := range terminal {
		if err := attempt(); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("attempt %d on terminal job: expected ErrInvalidTransition, got %v", i, err)
		}
	}
	stored, _ := env.manager.Get(ctx, job.ID)
	if stored.Status != domain.JobStatusCompleted || stored.ResultImageRef != "https://x/1" || stored.ErrorMessage != "" {
		t.Fatalf("terminal job changed: %+v", stored)
	}
}

func TestMarkProcessingMissingJob(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.manager.MarkProcessing(context.Background(), "missing")
	if !errors.Is(err, domain.ErrInvalidTransition) || !IsGone(err) {
		t.Fatalf("expected ErrInvalidTransition for missing job, got %v", err)
	}
}

func TestCompleteRequiresResultAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t, "p", ".jpg")
	env.manager.MarkProcessing(ctx, job.ID)

	if _, err := env.manager.Complete(ctx, job.ID, "", "req"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.manager.Complete(ctx, job.ID, "https://x/1", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	stored, _ := env.manager.Get(ctx, job.ID)
	if stored.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %s, want processing", stored.Status)
	}
}

func TestUpdatedAtNeverDecreases(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second), base.Add(-time.Hour)}
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}
	env := newTestEnv(t, WithClock(clock))
	ctx := context.Background()
	job := env.createJob(t, "p", ".jpg")
	env.manager.MarkProcessing(ctx, job.ID)
	env.manager.Complete(ctx, job.ID, "https://x/1", "req")

	snaps := env.recorder.snapshots(job.ID)
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	for i, snap := range snaps {
		if snap.UpdatedAt.Before(snap.CreatedAt) {
			t.Fatalf("snapshot %d: updated_at before created_at", i)
		}
		if i > 0 && snap.UpdatedAt.Before(snaps[i-1].UpdatedAt) {
			t.Fatalf("snapshot %d: updated_at decreased", i)
		}
	}
}

func TestConcurrentMarkProcessingHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "p", ".jpg")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.manager.MarkProcessing(context.Background(), job.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("winners = %d, want 1", wins)
	}
}

func TestDeleteRemovesRecordAndAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t, "p", ".png")

	if err := env.manager.Delete(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.manager.Get(ctx, job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.assets.Read(ctx, job.OriginalImageRef); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("asset should be removed, got %v", err)
	}
	if err := env.manager.Delete(ctx, job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleting again: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProceedsWhenAssetAlreadyGone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t, "p", ".png")
	if err := env.assets.Delete(ctx, job.OriginalImageRef); err != nil {
		t.Fatalf("pre-delete asset: %v", err)
	}

	if err := env.manager.Delete(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if env.repo.Len() != 0 {
		t.Fatalf("record should be deleted")
	}
}

func TestListRejectsNegativeWindow(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.manager.List(context.Background(), -1, 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
