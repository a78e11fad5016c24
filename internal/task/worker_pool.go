package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	taskTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once

	// errorHandler is called when a task execution fails and owns reporting it.
	// If nil, the pool logs the failure itself.
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// TaskTimeout bounds each task's execution. Zero means no limit.
	TaskTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
		TaskTimeout: 30 * time.Second,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if taskQueue == nil {
		panic("taskQueue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "worker_pool"))

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", config.WorkerCount),
			slog.Int("default_count", 1))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		taskTimeout: config.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling it more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Info("worker pool started", slog.Int("worker_count", p.workerCount))
	})
}

// Shutdown waits for the workers to drain a closed queue. If ctx expires
// first, the pool is stopped and the remaining tasks run with a cancelled
// context. The queue must be closed before calling Shutdown.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.Stop()
		return fmt.Errorf("worker pool drain interrupted: %w", ctx.Err())
	}
}

// Stop cancels running tasks and waits for the workers to exit.
// Tasks still buffered are executed with the cancelled context so that their
// own cleanup runs; they are expected to fail fast.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()

		drained := 0
		for {
			select {
			case t, ok := <-p.taskQueue.GetChannel():
				if !ok {
					p.logger.Info("worker pool stopped", slog.Int("drained", drained))
					return
				}
				p.process(t)
				drained++
			default:
				p.logger.Info("worker pool stopped", slog.Int("drained", drained))
				return
			}
		}
	})
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	ch := p.taskQueue.GetChannel()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			p.logger.Debug("worker picked up task",
				slog.Int("worker_id", id),
				slog.String("task_id", t.ID().String()))
			p.process(t)
		}
	}
}

func (p *WorkerPool) process(t Task) {
	ctx := p.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.execute(ctx, t)
	if err == nil {
		p.logger.Debug("task completed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.Duration("duration", time.Since(start)))
		return
	}

	if p.errorHandler != nil {
		p.errorHandler(t, err)
		return
	}
	p.logger.Error("task execution failed",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.String("error", err.Error()))
}

func (p *WorkerPool) execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return t.Execute(ctx)
}
