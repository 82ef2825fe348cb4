package llm

import (
	"context"
	"encoding/json"
)

// Conversation roles understood by the reasoning service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured tool request emitted by the reasoning service.
// IDs are synthesized by the client when the service omits them.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	// DecodeWarning is set when the argument payload could not be decoded
	// and was coerced to empty. It is carried through to the tool result.
	DecodeWarning string
}

// Message is one conversation entry sent to or received from the service.
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall
}

// ToolSpec declares one callable tool to the reasoning service.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function body of a ToolSpec. Parameters holds a JSON
// Schema object describing the argument shape.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Options are per-request sampling settings.
type Options struct {
	Temperature float64
	NumCtx      int
	MaxTokens   int
}

// ChatRequest is the input to one reasoning-service turn.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolSpec
	Options  Options
}

// ChatResponse is the service's turn output.
type ChatResponse struct {
	Message Message
	Done    bool
}

// Client is the reasoning-service boundary. Implementations must honor the
// context deadline; the caller treats a returned error as a skipped turn,
// not a session failure.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
