package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OllamaClient talks to an Ollama-compatible chat endpoint.
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ Client = &OllamaClient{}

// NewOllamaClient builds a client for the given host (e.g.
// "http://localhost:11434") and model name. The timeout bounds each Chat
// call end to end.
func NewOllamaClient(host, model string, timeout time.Duration, logger *logrus.Logger) *OllamaClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OllamaClient{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type ollamaToolCallFunction struct {
	Name      string       `json:"name"`
	Arguments flexibleArgs `json:"arguments"`
}

type ollamaToolCall struct {
	ID       string                 `json:"id,omitempty"`
	Function ollamaToolCallFunction `json:"function"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ToolSpec      `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// flexibleArgs tolerates the two argument encodings seen in the wild: a
// JSON object, or a string containing serialized JSON. Anything else
// decodes to an empty map so the call can still be surfaced with a warning.
type flexibleArgs struct {
	Values  map[string]any
	Coerced bool
}

func (f *flexibleArgs) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		f.Values = obj
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var nested map[string]any
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			f.Values = nested
			return nil
		}
	}
	f.Values = map[string]any{}
	f.Coerced = true
	return nil
}

// Chat sends the conversation and tool catalog, returning the assistant
// message with normalized tool calls.
func (c *OllamaClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := ollamaChatRequest{
		Model:    c.model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Tools:    req.Tools,
		Stream:   false,
		Options: map[string]any{
			"temperature": req.Options.Temperature,
		},
	}
	if req.Options.NumCtx > 0 {
		body.Options["num_ctx"] = req.Options.NumCtx
	}
	if req.Options.MaxTokens > 0 {
		body.Options["num_predict"] = req.Options.MaxTokens
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toWireMessage(m))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request to %s failed: %w", c.host, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	var wire ollamaChatResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if wire.Error != "" {
			return nil, fmt.Errorf("chat request rejected (%d): %s", resp.StatusCode, wire.Error)
		}
		return nil, fmt.Errorf("chat request rejected with status %d", resp.StatusCode)
	}

	msg := Message{
		Role:    wire.Message.Role,
		Content: wire.Message.Content,
	}
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	for _, tc := range wire.Message.ToolCalls {
		call := ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments.Values,
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.New().String()[:8]
		}
		if tc.Function.Arguments.Coerced {
			call.DecodeWarning = "tool arguments could not be decoded and were treated as empty"
			c.logger.WithFields(logrus.Fields{
				"tool":    call.Name,
				"call_id": call.ID,
			}).Warn("Coerced undecodable tool arguments to empty")
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
	}

	return &ChatResponse{Message: msg, Done: wire.Done}, nil
}

func toWireMessage(m Message) ollamaMessage {
	wire := ollamaMessage{Role: m.Role, Content: m.Content}
	for _, tc := range m.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		wire.ToolCalls = append(wire.ToolCalls, ollamaToolCall{
			ID: tc.ID,
			Function: ollamaToolCallFunction{
				Name:      tc.Name,
				Arguments: flexibleArgs{Values: args},
			},
		})
	}
	return wire
}

// MarshalJSON emits the argument map directly.
func (f flexibleArgs) MarshalJSON() ([]byte, error) {
	if f.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.Values)
}
