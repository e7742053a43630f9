package metrics

import (
	"context"
	"time"
)

// Metric is a single usage record
type Metric interface {
	// Kind groups metrics of the same type
	Kind() string
	// Latency is how long the measured operation took
	Latency() time.Duration
	// Failed reports whether the operation returned an error
	Failed() bool
}

// Writer receives flushed batches
type Writer interface {
	// Write writes batch of metrics of one kind
	Write(ctx context.Context, kind string, metrics []Metric) error
	// Close closes writer and flushes any remaining data
	Close() error
}

// Buffer manages batching and auto-flushing of metrics
type Buffer interface {
	// Add adds metric to buffer (thread-safe)
	Add(metric Metric) error
	// Flush flushes buffer to writer
	Flush(ctx context.Context) error
	// Size returns current buffer size
	Size() int
	// Close flushes and closes buffer
	Close(ctx context.Context) error
}
