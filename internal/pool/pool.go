// Package pool runs batches of independent tasks with bounded
// concurrency and globally throttled task starts.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nichescout/internal/metrics"
)

// Task is one unit of work. The returned value lands in Result.Value.
type Task func(ctx context.Context) (any, error)

// Result is the typed outcome of one task. A failed task carries its
// error here instead of aborting the batch.
type Result struct {
	Index int
	Value any
	Err   error
}

// ProgressFunc receives (completed, total) after each task finishes.
type ProgressFunc func(completed, total int)

// Config controls Pool behavior.
type Config struct {
	MaxWorkers int
	StartDelay time.Duration // minimum spacing between task starts, shared across workers
	MinDelay   time.Duration // floor applied to the spacing wait
}

// Pool executes batches with at most MaxWorkers tasks in flight. Task
// starts are spaced globally: the last-start timestamp is shared, not
// per worker.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	startMu   sync.Mutex
	lastStart time.Time
}

// New builds a Pool.
func New(cfg Config, logger *zap.Logger) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 3
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Run executes tasks and returns one Result per task, in submission
// order regardless of completion order. A panicking or failing task
// yields a failure marker; siblings keep running. Cancelling ctx stops
// tasks that have not started yet.
func (p *Pool) Run(ctx context.Context, tasks []Task, progress ProgressFunc) []Result {
	total := len(tasks)
	results := make([]Result, total)
	if total == 0 {
		return results
	}

	sem := make(chan struct{}, p.cfg.MaxWorkers)
	var (
		wg        sync.WaitGroup
		completed int
		doneMu    sync.Mutex
	)

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, task Task) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[index] = Result{Index: index, Err: ctx.Err()}
				p.finish(&doneMu, &completed, total, progress)
				return
			}
			defer func() { <-sem }()

			if err := p.waitForStartSlot(ctx); err != nil {
				results[index] = Result{Index: index, Err: err}
				p.finish(&doneMu, &completed, total, progress)
				return
			}

			metrics.IncBatchInFlight()
			value, err := p.runTask(ctx, index, task)
			metrics.DecBatchInFlight()

			results[index] = Result{Index: index, Value: value, Err: err}
			p.finish(&doneMu, &completed, total, progress)
		}(i, task)
	}

	wg.Wait()
	return results
}

// runTask invokes the task, converting panics into errors so one bad
// item cannot take down the batch.
func (p *Pool) runTask(ctx context.Context, index int, task Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %d panicked: %v", index, r)
			p.logger.Error("task panic", zap.Int("index", index), zap.Any("panic", r))
		}
	}()
	return task(ctx)
}

// waitForStartSlot throttles task starts globally. Only one goroutine
// measures and sleeps at a time so starts stay serialized.
func (p *Pool) waitForStartSlot(ctx context.Context) error {
	if p.cfg.StartDelay <= 0 {
		return nil
	}

	p.startMu.Lock()
	defer p.startMu.Unlock()

	if !p.lastStart.IsZero() {
		elapsed := time.Since(p.lastStart)
		if elapsed < p.cfg.StartDelay {
			wait := p.cfg.StartDelay - elapsed
			if wait < p.cfg.MinDelay {
				wait = p.cfg.MinDelay
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.lastStart = time.Now()
	return nil
}

func (p *Pool) finish(mu *sync.Mutex, completed *int, total int, progress ProgressFunc) {
	mu.Lock()
	*completed++
	done := *completed
	mu.Unlock()
	if progress != nil {
		progress(done, total)
	}
}
