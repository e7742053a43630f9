package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/pkg/logger"
)

// Worker interface that background workers should implement
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// Status describes the outcome of the latest iterations of a worker
type Status struct {
	Name        string
	Runs        int
	LastRun     time.Time
	LastSuccess time.Time
	LastError   error
}

// PeriodicWorker wraps a Worker with periodic execution
type PeriodicWorker struct {
	worker   Worker
	interval time.Duration
	wg       sync.WaitGroup
	name     string

	mu     sync.RWMutex
	status Status
}

// NewPeriodicWorker creates new periodic worker
func NewPeriodicWorker(worker Worker, interval time.Duration) *PeriodicWorker {
	return &PeriodicWorker{
		worker:   worker,
		interval: interval,
		name:     worker.Name(),
		status:   Status{Name: worker.Name()},
	}
}

// Start starts the worker with graceful shutdown support
func (pw *PeriodicWorker) Start(ctx context.Context) {
	pw.wg.Add(1)
	go pw.run(ctx)
}

// Stop waits until the worker exits or the timeout elapses
func (pw *PeriodicWorker) Stop(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Worker stopped gracefully",
			zap.String("worker", pw.name),
		)
		return true
	case <-time.After(timeout):
		logger.Warn("⚠️ Worker stop timeout",
			zap.String("worker", pw.name),
		)
		return false
	}
}

// Status returns a copy of the worker status
func (pw *PeriodicWorker) Status() Status {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.status
}

// run executes worker periodically
func (pw *PeriodicWorker) run(ctx context.Context) {
	defer pw.wg.Done()

	logger.Info("🚀 Worker started",
		zap.String("worker", pw.name),
		zap.Duration("interval", pw.interval),
	)

	// Run immediately on start
	pw.execute(ctx)

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Worker stopping",
				zap.String("worker", pw.name),
			)
			return

		case <-ticker.C:
			// errors are recorded, the worker keeps running
			pw.execute(ctx)
		}
	}
}

func (pw *PeriodicWorker) execute(ctx context.Context) {
	startTime := time.Now()
	err := pw.worker.Run(ctx)

	pw.mu.Lock()
	pw.status.Runs++
	pw.status.LastRun = startTime
	pw.status.LastError = err
	if err == nil {
		pw.status.LastSuccess = startTime
	}
	pw.mu.Unlock()

	if err != nil {
		logger.Error("worker execution failed",
			zap.String("worker", pw.name),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
	}
}

// WorkerGroup manages multiple workers with graceful shutdown
type WorkerGroup struct {
	workers []*PeriodicWorker
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// NewWorkerGroup creates new worker group
func NewWorkerGroup(ctx context.Context) *WorkerGroup {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerGroup{
		workers: make([]*PeriodicWorker, 0),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add adds worker to group
func (wg *WorkerGroup) Add(worker Worker, interval time.Duration) *PeriodicWorker {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	pw := NewPeriodicWorker(worker, interval)
	wg.workers = append(wg.workers, pw)
	return pw
}

// Start starts all workers
func (wg *WorkerGroup) Start() {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	for _, worker := range wg.workers {
		worker.Start(wg.ctx)
	}

	logger.Info("🚀 Worker group started",
		zap.Int("workers", len(wg.workers)),
	)
}

// Stop cancels all workers and waits for them, sharing a single deadline
func (wg *WorkerGroup) Stop(timeout time.Duration) {
	logger.Info("🛑 Stopping worker group...",
		zap.Int("workers", len(wg.workers)),
	)

	wg.cancel()

	wg.mu.Lock()
	defer wg.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for _, worker := range wg.workers {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		worker.Stop(remaining)
	}

	logger.Info("✅ Worker group stopped")
}

// Statuses returns the status of every worker in the group
func (wg *WorkerGroup) Statuses() []Status {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	out := make([]Status, 0, len(wg.workers))
	for _, w := range wg.workers {
		out = append(out, w.Status())
	}
	return out
}
