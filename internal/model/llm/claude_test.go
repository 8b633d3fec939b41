package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-agent/pkg/errors"
)

func claudeServer(t *testing.T, reply string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		if capture != nil {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*capture = body
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
}

func TestNewClaudeClient_MissingAPIKey(t *testing.T) {
	_, err := NewClaudeClient("m", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingAPIKey)
}

func TestClaudeClient_ChatWithTools(t *testing.T) {
	var captured map[string]any
	srv := claudeServer(t, `{
		"content": [
			{"type": "text", "text": "Let me plan that."},
			{"type": "tool_use", "id": "toolu_1", "name": "get_route", "input": {"start": "Paris", "end": "Lyon", "daily_distance_km": 80}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 12, "output_tokens": 34}
	}`, &captured)
	defer srv.Close()

	c, err := NewClaudeClient("test-model", "test-key", srv.URL)
	require.NoError(t, err)

	tools := []ToolDefinition{{Name: "get_route", Description: "route", InputSchema: map[string]any{"type": "object"}}}
	resp, err := c.ChatWithTools(context.Background(), []Message{TextMessage("user", "Paris to Lyon")}, tools, "system prompt")
	require.NoError(t, err)

	assert.Equal(t, "system prompt", captured["system"])
	assert.Equal(t, "test-model", captured["model"])
	require.Len(t, captured["tools"], 1)

	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Let me plan that.", resp.Text())
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "get_route", uses[0].Name)
	assert.Equal(t, "Paris", uses[0].Input["start"])
	assert.Equal(t, float64(80), uses[0].Input["daily_distance_km"])
	assert.Equal(t, 12, resp.Usage.InputTokens)
}

func TestClaudeClient_ChatWithToolsEncodesToolResults(t *testing.T) {
	var captured map[string]any
	srv := claudeServer(t, `{"content": [{"type": "text", "text": "ok"}], "stop_reason": "end_turn", "usage": {}}`, &captured)
	defer srv.Close()

	c, err := NewClaudeClient("m", "test-key", srv.URL)
	require.NoError(t, err)

	messages := []Message{
		TextMessage("user", "plan"),
		{Role: "assistant", Content: []ContentBlock{{Type: BlockToolUse, ID: "toolu_1", Name: "get_route", Input: map[string]any{"start": "Paris"}}}},
		{Role: "user", Content: []ContentBlock{{Type: BlockToolResult, ToolUseID: "toolu_1", Content: `{"days":3}`, IsError: false}}},
	}
	_, err = c.ChatWithTools(context.Background(), messages, nil, "")
	require.NoError(t, err)

	wire := captured["messages"].([]any)
	require.Len(t, wire, 3)
	resultBlock := wire[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", resultBlock["type"])
	assert.Equal(t, "toolu_1", resultBlock["tool_use_id"])
	assert.Equal(t, `{"days":3}`, resultBlock["content"])
}

func TestClaudeClient_ChatStructured(t *testing.T) {
	var captured map[string]any
	srv := claudeServer(t, `{
		"content": [{"type": "tool_use", "id": "toolu_9", "name": "record_response", "input": {"reply": "done", "questions": []}}],
		"stop_reason": "tool_use",
		"usage": {}
	}`, &captured)
	defer srv.Close()

	c, err := NewClaudeClient("m", "test-key", srv.URL)
	require.NoError(t, err)

	schema := map[string]any{"type": "object"}
	raw, err := c.ChatStructured(context.Background(), []Message{TextMessage("user", "wrap up")}, "finalize", schema)
	require.NoError(t, err)

	var parsed struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "done", parsed.Reply)

	choice := captured["tool_choice"].(map[string]any)
	assert.Equal(t, "tool", choice["type"])
	assert.Equal(t, "record_response", choice["name"])
}

func TestClaudeClient_ChatStructuredRejectsAssistantTail(t *testing.T) {
	c, err := NewClaudeClient("m", "test-key", "http://127.0.0.1:1")
	require.NoError(t, err)

	messages := []Message{
		TextMessage("user", "plan"),
		TextMessage("assistant", "working on it"),
	}
	_, err = c.ChatStructured(context.Background(), messages, "", map[string]any{"type": "object"})
	require.Error(t, err)
}

func TestClaudeClient_APIErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request"}}`))
	}))
	defer srv.Close()

	c, err := NewClaudeClient("m", "test-key", srv.URL)
	require.NoError(t, err)
	c.client.SetRetryCount(0)

	_, err = c.ChatWithTools(context.Background(), []Message{TextMessage("user", "hi")}, nil, "")
	require.Error(t, err)
}
