package ai

import (
	"context"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a chat transcript
type Message struct {
	Role       string
	Content    string
	ToolCallID string     // set on RoleTool messages
	ToolCalls  []ToolCall // set on RoleAssistant messages that request tools
}

// ToolCall is a function call requested by the model
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// ToolSpec describes a function the model may call
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]string // param name -> JSON schema type
	ParamDocs   map[string]string // param name -> description
	Required    []string
}

// Reply is the model's answer to a transcript
type Reply struct {
	Content          string
	ToolCalls        []ToolCall
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// ChatService completes chat transcripts
type ChatService interface {
	// Complete sends the transcript and returns the next assistant message
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Reply, error)

	// GetName returns provider name
	GetName() string
}
