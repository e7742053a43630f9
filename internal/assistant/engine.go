package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/adapters/ai"
	"github.com/selivandex/fatty/internal/knowledge"
	"github.com/selivandex/fatty/internal/toolkit"
	"github.com/selivandex/fatty/pkg/logger"
	"github.com/selivandex/fatty/pkg/metrics"
	"github.com/selivandex/fatty/pkg/templates"
)

const (
	// DefaultName is the assistant persona
	DefaultName = "Fatty"

	// DefaultMaxToolRounds bounds the function-calling loop
	DefaultMaxToolRounds = 4
)

var (
	// ErrEmptyMessage is returned for a blank user message
	ErrEmptyMessage = errors.New("empty message")

	// ErrEmptyReply is returned when the model answers with no text
	ErrEmptyReply = errors.New("empty reply from model")

	// ErrTooManyToolRounds is returned when the model keeps calling tools
	ErrTooManyToolRounds = errors.New("too many tool rounds")
)

// EngineConfig configures an Engine
type EngineConfig struct {
	Name          string
	Token         string // featured token shown in the persona
	MaxToolRounds int
}

// Engine answers user messages with the chat model, grounded on the
// knowledge base and able to call registered tools.
// Each call to Chat is an independent conversation.
type Engine struct {
	chat    ai.ChatService
	tools   *toolkit.ToolRegistry
	kb      *knowledge.Base
	prompts templates.Renderer
	metrics metrics.Buffer // optional
	cfg     EngineConfig
}

// NewEngine creates new engine
func NewEngine(cfg EngineConfig, chat ai.ChatService, tools *toolkit.ToolRegistry, kb *knowledge.Base, prompts templates.Renderer) *Engine {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}

	return &Engine{
		chat:    chat,
		tools:   tools,
		kb:      kb,
		prompts: prompts,
		cfg:     cfg,
	}
}

// SetMetricsBuffer enables chat usage metrics
func (e *Engine) SetMetricsBuffer(buf metrics.Buffer) {
	e.metrics = buf
}

// Chat answers a single user message
func (e *Engine) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	m := &metrics.ChatMetric{Timestamp: time.Now(), Provider: e.chat.GetName()}
	reply, err := e.chatLoop(ctx, message, m)
	m.Duration = time.Since(m.Timestamp)
	m.Success = err == nil
	if e.metrics != nil {
		if mErr := e.metrics.Add(m); mErr != nil {
			logger.Error("failed to add chat metric", zap.Error(mErr))
		}
	}

	return reply, err
}

func (e *Engine) chatLoop(ctx context.Context, message string, m *metrics.ChatMetric) (string, error) {
	system, err := e.SystemPrompt()
	if err != nil {
		return "", err
	}

	specs := e.toolSpecs()
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: message},
	}

	for round := 0; ; round++ {
		tools := specs
		if round >= e.cfg.MaxToolRounds {
			// last round: force a text answer
			tools = nil
		}

		reply, err := e.chat.Complete(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("%s: %w", e.chat.GetName(), err)
		}
		m.ToolRounds = round
		m.PromptTokens += reply.PromptTokens
		m.CompletionTokens += reply.CompletionTokens

		if len(reply.ToolCalls) == 0 {
			content := strings.TrimSpace(reply.Content)
			if content == "" {
				return "", ErrEmptyReply
			}

			logger.Debug("assistant replied",
				zap.Int("tool_rounds", round),
				zap.Duration("duration", time.Since(m.Timestamp)),
			)
			return content, nil
		}

		if tools == nil {
			return "", ErrTooManyToolRounds
		}

		messages = append(messages, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, call := range reply.ToolCalls {
			messages = append(messages, ai.Message{
				Role:       ai.RoleTool,
				ToolCallID: call.ID,
				Content:    e.runTool(ctx, call),
			})
		}
	}
}

// SystemPrompt renders the persona with the current knowledge context
func (e *Engine) SystemPrompt() (string, error) {
	names := make([]string, 0, e.tools.GetToolCount())
	for _, meta := range e.tools.List() {
		names = append(names, meta.Name)
	}

	out, err := e.prompts.ExecuteTemplate(SystemTemplate, PromptData{
		Name:      e.cfg.Name,
		Token:     e.cfg.Token,
		Tools:     names,
		Knowledge: e.kb.Context(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// runTool executes a tool call; failures are returned to the model as text
func (e *Engine) runTool(ctx context.Context, call ai.ToolCall) string {
	params := map[string]interface{}{}
	if args := strings.TrimSpace(call.Arguments); args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return fmt.Sprintf("error: invalid arguments for %s: %v", call.Name, err)
		}
	}

	result, err := e.tools.Execute(ctx, call.Name, params)
	if err != nil {
		return "error: " + err.Error()
	}

	switch v := result.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}

func (e *Engine) toolSpecs() []ai.ToolSpec {
	list := e.tools.List()
	specs := make([]ai.ToolSpec, 0, len(list))
	for _, meta := range list {
		specs = append(specs, ai.ToolSpec{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  meta.ParamTypes,
			ParamDocs:   meta.ParamDocs,
			Required:    meta.Required,
		})
	}
	return specs
}
