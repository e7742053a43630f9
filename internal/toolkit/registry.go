package toolkit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/pkg/logger"
	"github.com/selivandex/fatty/pkg/metrics"
)

// ToolFunc is the signature for all tool functions
// Takes context and generic params map, returns generic result and error
type ToolFunc func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ToolMetadata contains tool information for introspection and for the
// function definitions sent to the chat model
type ToolMetadata struct {
	Name        string
	Description string
	ParamTypes  map[string]string // param name -> JSON schema type
	ParamDocs   map[string]string // param name -> description
	Required    []string
	ReturnType  string
}

// ToolRegistry manages all tools the assistant may call
type ToolRegistry struct {
	mu       sync.RWMutex
	tools    map[string]ToolFunc
	metadata map[string]ToolMetadata
	metrics  metrics.Buffer // optional
}

// NewToolRegistry creates new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:    make(map[string]ToolFunc),
		metadata: make(map[string]ToolMetadata),
	}
}

// SetMetricsBuffer enables tool usage metrics
func (r *ToolRegistry) SetMetricsBuffer(buf metrics.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = buf
}

// Register adds or replaces a tool
func (r *ToolRegistry) Register(meta ToolMetadata, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[meta.Name] = fn
	r.metadata[meta.Name] = meta
}

// Execute runs a tool by name with given parameters
// Returns result and error, with proper type checking and logging
func (r *ToolRegistry) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	fn, ok := r.tools[name]
	count := len(r.tools)
	buf := r.metrics
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown tool: %s (available: %d tools)", name, count)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	logger.Debug("executing tool",
		zap.String("tool", name),
		zap.Any("params", params),
	)

	startTime := time.Now()
	result, err := fn(ctx, params)
	duration := time.Since(startTime)

	if buf != nil {
		if mErr := buf.Add(&metrics.ToolUsageMetric{
			Timestamp:     startTime,
			ToolName:      name,
			Success:       err == nil,
			ExecutionTime: duration,
		}); mErr != nil {
			logger.Error("failed to add tool usage metric", zap.Error(mErr))
		}
	}

	if err != nil {
		logger.Warn("tool execution failed",
			zap.String("tool", name),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return nil, fmt.Errorf("tool %s failed: %w", name, err)
	}

	logger.Debug("tool executed successfully",
		zap.String("tool", name),
		zap.Duration("duration", duration),
	)

	return result, nil
}

// GetMetadata returns metadata for a tool
func (r *ToolRegistry) GetMetadata(name string) (ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.metadata[name]
	return meta, ok
}

// List returns metadata of all tools sorted by name
func (r *ToolRegistry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolMetadata, 0, len(r.metadata))
	for _, meta := range r.metadata {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetToolCount returns number of registered tools
func (r *ToolRegistry) GetToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ============ PARAMETER HELPERS ============

func getString(params map[string]interface{}, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be string, got %T", key, val)
	}
	return str, nil
}
