package llm

import (
	"context"
	"fmt"
)

// MockClient is a scripted Client for tests. It returns queued responses in
// order and records every request it receives.
type MockClient struct {
	// Responses are returned one per Chat call, in order.
	Responses []*ChatResponse

	// Errs, when non-nil at the same index, is returned instead of the
	// response. A shorter slice than Responses means no error.
	Errs []error

	// Requests records all requests passed to Chat.
	Requests []ChatRequest

	// ChatFunc, when set, replaces the queue behavior entirely.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	calls int
}

var _ Client = &MockClient{}

// Chat implements Client for testing.
func (m *MockClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	idx := m.calls
	m.calls++
	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return nil, m.Errs[idx]
	}
	if idx >= len(m.Responses) {
		return nil, fmt.Errorf("mock client exhausted after %d responses", len(m.Responses))
	}
	return m.Responses[idx], nil
}

// TextResponse builds an assistant turn with plain text and no tool calls.
func TextResponse(content string) *ChatResponse {
	return &ChatResponse{Message: Message{Role: RoleAssistant, Content: content}, Done: true}
}

// ToolCallResponse builds an assistant turn requesting a single tool call.
func ToolCallResponse(id, name string, args map[string]any) *ChatResponse {
	return &ChatResponse{
		Message: Message{
			Role:      RoleAssistant,
			ToolCalls: []ToolCall{{ID: id, Name: name, Arguments: args}},
		},
		Done: true,
	}
}
