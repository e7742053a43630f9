package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/pkg/logger"
)

const flushTimeout = 5 * time.Second

// BufferedMetrics manages batched metrics with auto-flush
type BufferedMetrics struct {
	writer    Writer
	buffer    map[string][]Metric
	bufferMu  sync.Mutex
	batchSize int
	interval  time.Duration
	flushCh   chan struct{}
	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// BufferConfig configures metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int           // Flush when a kind reaches this size
	FlushInterval time.Duration // Auto-flush interval
}

// NewBufferedMetrics creates new buffered metrics manager
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}

	bm := &BufferedMetrics{
		writer:    cfg.Writer,
		buffer:    make(map[string][]Metric),
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		flushCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.autoFlush()

	logger.Info("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add adds metric to buffer (thread-safe)
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	kind := metric.Kind()
	if kind == "" {
		return fmt.Errorf("metric kind is empty")
	}

	bm.bufferMu.Lock()
	bm.buffer[kind] = append(bm.buffer[kind], metric)
	full := len(bm.buffer[kind]) >= bm.batchSize
	bm.bufferMu.Unlock()

	if full {
		// wake the flush loop without blocking the caller
		select {
		case bm.flushCh <- struct{}{}:
		default:
		}
	}

	return nil
}

// Flush flushes all buffered metrics to writer
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.bufferMu.Lock()
	toFlush := bm.buffer
	bm.buffer = make(map[string][]Metric, len(toFlush))
	bm.bufferMu.Unlock()

	var errs []error
	for kind, batch := range toFlush {
		if len(batch) == 0 {
			continue
		}
		if err := bm.writer.Write(ctx, kind, batch); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("kind", kind),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}

	return errors.Join(errs...)
}

// Size returns current buffer size across all kinds
func (bm *BufferedMetrics) Size() int {
	bm.bufferMu.Lock()
	defer bm.bufferMu.Unlock()

	total := 0
	for _, batch := range bm.buffer {
		total += len(batch)
	}
	return total
}

// Close stops auto-flush, flushes what is left and closes the writer
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	bm.closeOnce.Do(func() { close(bm.stopCh) })
	bm.wg.Wait()

	flushErr := bm.Flush(ctx)
	if flushErr != nil {
		logger.Error("final flush failed", zap.Error(flushErr))
	}

	return errors.Join(flushErr, bm.writer.Close())
}

func (bm *BufferedMetrics) autoFlush() {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-bm.flushCh:
		case <-bm.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := bm.Flush(ctx); err != nil {
			logger.Warn("periodic flush failed", zap.Error(err))
		}
		cancel()
	}
}
