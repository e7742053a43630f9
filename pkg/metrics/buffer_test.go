package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches map[string]int
	err     error
	closed  bool
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{batches: make(map[string]int)}
}

func (w *recordingWriter) Write(_ context.Context, kind string, batch []Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.batches[kind] += len(batch)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) count(kind string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.batches[kind]
}

func TestBufferedMetrics_FlushAndClose(t *testing.T) {
	w := newRecordingWriter()
	bm := NewBufferedMetrics(BufferConfig{Writer: w, BatchSize: 100, FlushInterval: time.Hour})

	require.NoError(t, bm.Add(&ToolUsageMetric{ToolName: "get_sol_price", Success: true}))
	require.NoError(t, bm.Add(&ChatMetric{Success: true}))
	assert.Equal(t, 2, bm.Size())
	assert.Error(t, bm.Add(nil))

	require.NoError(t, bm.Close(context.Background()))
	assert.Equal(t, 1, w.count(KindToolUsage))
	assert.Equal(t, 1, w.count(KindChat))
	assert.Equal(t, 0, bm.Size())
	assert.True(t, w.closed)
}

func TestBufferedMetrics_FlushesWhenBatchIsFull(t *testing.T) {
	w := newRecordingWriter()
	bm := NewBufferedMetrics(BufferConfig{Writer: w, BatchSize: 3, FlushInterval: time.Hour})
	defer bm.Close(context.Background())

	for i := 0; i < 3; i++ {
		require.NoError(t, bm.Add(&ToolUsageMetric{Success: true}))
	}

	require.Eventually(t, func() bool { return w.count(KindToolUsage) == 3 }, time.Second, 5*time.Millisecond)
}

func TestBufferedMetrics_WriteError(t *testing.T) {
	w := newRecordingWriter()
	w.err = errors.New("disk full")
	bm := NewBufferedMetrics(BufferConfig{Writer: w, FlushInterval: time.Hour})

	require.NoError(t, bm.Add(&ChatMetric{}))
	assert.ErrorContains(t, bm.Flush(context.Background()), "disk full")
	assert.Equal(t, 0, bm.Size(), "failed batches are dropped")
	_ = bm.Close(context.Background())
}

func TestSummarize(t *testing.T) {
	s := Summarize(KindToolUsage, []Metric{
		&ToolUsageMetric{Success: true, ExecutionTime: 10 * time.Millisecond},
		&ToolUsageMetric{Success: false, ExecutionTime: 30 * time.Millisecond},
	})
	assert.Equal(t, Summary{
		Kind:       KindToolUsage,
		Count:      2,
		Failures:   1,
		AvgLatency: 20 * time.Millisecond,
		MaxLatency: 30 * time.Millisecond,
	}, s)

	assert.Equal(t, Summary{Kind: KindChat}, Summarize(KindChat, nil))
}

func TestLogWriter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := NewLogWriter(zap.New(core))

	require.NoError(t, w.Write(context.Background(), KindChat, []Metric{&ChatMetric{Success: true}}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "usage metrics", entry.Message)
	assert.Equal(t, KindChat, entry.ContextMap()["kind"])
	assert.Equal(t, int64(1), entry.ContextMap()["count"])
}
