package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Summary aggregates a batch of metrics of one kind
type Summary struct {
	Kind       string
	Count      int
	Failures   int
	AvgLatency time.Duration
	MaxLatency time.Duration
}

// Summarize aggregates a batch
func Summarize(kind string, batch []Metric) Summary {
	s := Summary{Kind: kind, Count: len(batch)}
	if len(batch) == 0 {
		return s
	}

	var total time.Duration
	for _, m := range batch {
		if m.Failed() {
			s.Failures++
		}
		l := m.Latency()
		total += l
		if l > s.MaxLatency {
			s.MaxLatency = l
		}
	}
	s.AvgLatency = total / time.Duration(len(batch))
	return s
}

// LogWriter writes one summary line per flushed batch
type LogWriter struct {
	log *zap.Logger
}

// NewLogWriter creates a writer logging to log
func NewLogWriter(log *zap.Logger) *LogWriter {
	return &LogWriter{log: log}
}

func (w *LogWriter) Write(_ context.Context, kind string, batch []Metric) error {
	s := Summarize(kind, batch)
	w.log.Info("usage metrics",
		zap.String("kind", s.Kind),
		zap.Int("count", s.Count),
		zap.Int("failures", s.Failures),
		zap.Duration("avg_latency", s.AvgLatency),
		zap.Duration("max_latency", s.MaxLatency),
	)
	return nil
}

func (w *LogWriter) Close() error {
	return nil
}
