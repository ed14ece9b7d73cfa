package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/domain"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/imagegen"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/providers/image"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/storage"
)

const (
	defaultDispatchTimeout = 5 * time.Minute
	// finalizeTimeout bounds the terminal write after the unit's own context
	// has expired.
	finalizeTimeout = 10 * time.Second
)

// EditorResolver returns the provider editor for a model profile name.
type EditorResolver interface {
	Editor(name string) (image.Editor, error)
}

// DispatcherOptions bounds the background work.
type DispatcherOptions struct {
	// Concurrency caps simultaneous provider calls.
	Concurrency int
	// Timeout bounds one unit of work from claim to terminal state.
	Timeout time.Duration
}

// Dispatcher runs one fire-and-forget edit per created job. There is no
// retry and no durable queue: a unit lost to a crash leaves its job in
// pending or processing.
type Dispatcher struct {
	manager *Manager
	assets  storage.AssetStore
	editors EditorResolver
	logger  infra.Logger

	sem     *semaphore.Weighted
	timeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Units inherit the values of ctx but not
// its cancellation: only Shutdown cancels them, once its own deadline passes.
func NewDispatcher(ctx context.Context, manager *Manager, assets storage.AssetStore, editors EditorResolver, logger infra.Logger, opts DispatcherOptions) *Dispatcher {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Dispatcher{
		manager: manager,
		assets:  assets,
		editors: editors,
		logger:  logger,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

// Dispatch schedules the job and returns immediately. It reports false when
// the dispatcher is shutting down and the job was not scheduled.
func (d *Dispatcher) Dispatch(job domain.Job) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn().Str("job_id", job.ID).Msg("dispatch: shutting down, job left pending")
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(job)
	return true
}

func (d *Dispatcher) run(job domain.Job) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("job_id", job.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("dispatch: unit panicked")
		}
	}()

	if err := d.sem.Acquire(d.baseCtx, 1); err != nil {
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("dispatch: stopped before a slot was free, job left pending")
		return
	}
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(d.baseCtx, d.timeout)
	defer cancel()

	if err := d.Process(ctx, job); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatch: unit ended with a system error")
	}
}

// Process drives one job from pending to a terminal state in the calling
// goroutine. Failures of the edit itself are recorded on the job and are not
// returned; the returned error is reserved for failures to persist state.
func (d *Dispatcher) Process(ctx context.Context, job domain.Job) (err error) {
	log := d.logger.With().Str("job_id", job.ID).Str("model", job.Model).Logger()

	if _, err := d.manager.MarkProcessing(ctx, job.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn().Err(err).Msg("dispatch: job not pending, skipping")
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("dispatch: edit panicked")
			err = d.finish(ctx, job.ID, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, editErr := d.edit(ctx, job)
	if editErr != nil {
		log.Warn().Err(editErr).Dur("elapsed", time.Since(start)).Msg("dispatch: edit failed")
	} else {
		log.Info().Str("result_url", result.URL).Dur("elapsed", time.Since(start)).Msg("dispatch: edit completed")
	}
	return d.finish(ctx, job.ID, result, editErr)
}

func (d *Dispatcher) edit(ctx context.Context, job domain.Job) (*image.Result, error) {
	editor, err := d.editors.Editor(job.Model)
	if err != nil {
		return nil, err
	}
	data, err := d.assets.Read(ctx, job.OriginalImageRef)
	if err != nil {
		return nil, fmt.Errorf("read source image: %w", err)
	}
	payload := imagegen.EncodeKey(job.OriginalImageRef, data)

	// Skip the provider call when the job was deleted after it was claimed.
	if _, err := d.manager.Get(ctx, job.ID); err != nil {
		return nil, err
	}

	handle, err := editor.Submit(ctx, payload, job.Prompt)
	if err != nil {
		return nil, err
	}
	return editor.AwaitResult(ctx, handle)
}

// finish writes the terminal state. It uses a fresh bounded context so a
// unit that timed out can still record its failure.
func (d *Dispatcher) finish(ctx context.Context, id string, result *image.Result, editErr error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	var err error
	if editErr == nil {
		_, err = d.manager.Complete(wctx, id, result.URL, result.ExternalRequestID)
		if errors.Is(err, domain.ErrInvalidInput) {
			editErr = err
		}
	}
	if editErr != nil {
		_, err = d.manager.Fail(wctx, id, editErr.Error())
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		if IsGone(err) {
			d.logger.Warn().Str("job_id", id).Msg("dispatch: job deleted during processing, result dropped")
		} else {
			d.logger.Warn().Err(err).Str("job_id", id).Msg("dispatch: job already finished elsewhere")
		}
		return nil
	}
	return fmt.Errorf("finish job: %w", err)
}

// Shutdown stops accepting work and waits for every scheduled unit. When ctx
// expires first the remaining units are cancelled: running ones record a
// failure, ones still waiting for a slot leave their job pending.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
