package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, response string, capture *[]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if capture != nil {
			*capture = body
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func TestOllamaClient_ChatPlainText(t *testing.T) {
	var captured []byte
	srv := newTestServer(t, `{"message":{"role":"assistant","content":"hello"},"done":true}`, &captured)
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model", 5*time.Second, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "you are a crawler"},
			{Role: RoleUser, Content: "find blogs"},
		},
		Options: Options{Temperature: 0.2, NumCtx: 16384, MaxTokens: 4096},
	})
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, resp.Message.Role)
	assert.Equal(t, "hello", resp.Message.Content)
	assert.Empty(t, resp.Message.ToolCalls)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured, &sent))
	assert.Equal(t, "test-model", sent["model"])
	assert.Equal(t, false, sent["stream"])
	opts, ok := sent["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.2, opts["temperature"])
	assert.Equal(t, float64(16384), opts["num_ctx"])
	assert.Equal(t, float64(4096), opts["num_predict"])
}

func TestOllamaClient_ChatStructuredToolCall(t *testing.T) {
	srv := newTestServer(t, `{
		"message": {
			"role": "assistant",
			"content": "",
			"tool_calls": [
				{"function": {"name": "search_web_for_blogs", "arguments": {"keyword": "camping"}}}
			]
		},
		"done": true
	}`, nil)
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model", 5*time.Second, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "go"}}})
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)

	call := resp.Message.ToolCalls[0]
	assert.Equal(t, "search_web_for_blogs", call.Name)
	assert.Equal(t, "camping", call.Arguments["keyword"])
	assert.NotEmpty(t, call.ID, "missing call ids must be synthesized")
	assert.Empty(t, call.DecodeWarning)
}

func TestOllamaClient_ChatStringEncodedArguments(t *testing.T) {
	srv := newTestServer(t, `{
		"message": {
			"role": "assistant",
			"tool_calls": [
				{"function": {"name": "search_web_for_blogs", "arguments": "{\"keyword\": \"hiking\"}"}}
			]
		},
		"done": true
	}`, nil)
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model", 5*time.Second, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "go"}}})
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "hiking", resp.Message.ToolCalls[0].Arguments["keyword"])
	assert.Empty(t, resp.Message.ToolCalls[0].DecodeWarning)
}

func TestOllamaClient_ChatUndecodableArguments(t *testing.T) {
	srv := newTestServer(t, `{
		"message": {
			"role": "assistant",
			"tool_calls": [
				{"function": {"name": "search_web_for_blogs", "arguments": "not json at all"}}
			]
		},
		"done": true
	}`, nil)
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model", 5*time.Second, nil)
	resp, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "go"}}})
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)

	call := resp.Message.ToolCalls[0]
	assert.Empty(t, call.Arguments)
	assert.NotEmpty(t, call.DecodeWarning)
}

func TestOllamaClient_ChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "missing-model", 5*time.Second, nil)
	_, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "go"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
