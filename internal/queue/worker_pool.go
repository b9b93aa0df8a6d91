package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// WorkerPool executes tasks on a fixed number of goroutines fed by a buffered channel.
type WorkerPool struct {
	workers int
	tasks   chan GenerationTask
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewWorkerPool(workers, buffer int, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers: workers,
		tasks:   make(chan GenerationTask, buffer),
		logger:  logger.With(zap.String("component", "worker_pool")),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Dispatch enqueues without blocking; a full buffer yields ErrQueueFull.
func (p *WorkerPool) Dispatch(_ context.Context, task GenerationTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *WorkerPool) Start(handler Handler, onFailure FailureHook) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for task := range p.tasks {
				RunSafely(p.baseCtx, p.logger.With(zap.Int("worker", worker)), task, handler, onFailure)
			}
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.workers), zap.Int("buffer", cap(p.tasks)))
}

// Stop closes the queue and waits for queued tasks to drain. When ctx expires
// first, running tasks are cancelled.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// RunSafely executes handler inside a recover boundary and routes any error or
// panic to onFailure.
func RunSafely(ctx context.Context, logger *zap.Logger, task GenerationTask, handler Handler, onFailure FailureHook) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("generation task panicked: %v", r)
				logger.Error("generation task panicked",
					zap.String("job_id", task.JobID.String()),
					zap.String("plan_id", task.PlanID.String()),
					zap.ByteString("stack", debug.Stack()),
				)
			}
		}()
		err = handler(ctx, task)
	}()

	if err == nil {
		return
	}
	logger.Error("generation task failed",
		zap.String("job_id", task.JobID.String()),
		zap.String("plan_id", task.PlanID.String()),
		zap.Int("attempt", task.Attempt),
		zap.Error(err),
	)
	if onFailure != nil {
		onFailure(ctx, task, err)
	}
}
