package metrics

import "time"

// Metric kinds
const (
	KindToolUsage = "tool_usage"
	KindChat      = "chat"
)

// ToolUsageMetric records one tool execution
type ToolUsageMetric struct {
	Timestamp     time.Time
	ToolName      string
	Success       bool
	ExecutionTime time.Duration
}

func (m *ToolUsageMetric) Kind() string           { return KindToolUsage }
func (m *ToolUsageMetric) Latency() time.Duration { return m.ExecutionTime }
func (m *ToolUsageMetric) Failed() bool           { return !m.Success }

// ChatMetric records one answered (or failed) user message
type ChatMetric struct {
	Timestamp        time.Time
	Provider         string
	ToolRounds       int
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Success          bool
}

func (m *ChatMetric) Kind() string           { return KindChat }
func (m *ChatMetric) Latency() time.Duration { return m.Duration }
func (m *ChatMetric) Failed() bool           { return !m.Success }
