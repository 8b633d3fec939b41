package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-agent/internal/model/llm"
	"trip-agent/internal/tool"
	"trip-agent/internal/tool/registry"
)

// scriptedClient 按脚本回放模型响应；超出脚本后重复最后一条
type scriptedClient struct {
	responses  []*llm.Response
	calls      int
	systems    []string
	structured json.RawMessage
	structErr  error
	err        error
}

func (c *scriptedClient) ChatWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, system string) (*llm.Response, error) {
	c.systems = append(c.systems, system)
	if c.err != nil {
		return nil, c.err
	}
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return c.responses[idx], nil
}

func (c *scriptedClient) ChatStructured(ctx context.Context, messages []llm.Message, system string, schema map[string]any) (json.RawMessage, error) {
	if n := len(messages); n > 0 && messages[n-1].Role == "assistant" {
		return nil, fmt.Errorf("transcript ends in assistant turn")
	}
	return c.structured, c.structErr
}

func (c *scriptedClient) Model() string    { return "scripted" }
func (c *scriptedClient) Provider() string { return "test" }

// countingTool 记录执行次数的假工具
type countingTool struct {
	name     string
	executed int
	output   any
	err      error
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "test tool" }
func (t *countingTool) Schema() tool.Schema {
	return tool.Schema{
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string"},
		},
		Required: []string{"location"},
	}
}
func (t *countingTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	t.executed++
	return t.output, t.err
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: text}},
		StopReason: "end_turn",
	}
}

func toolUseResponse(id, name string, input map[string]any) *llm.Response {
	return &llm.Response{
		Content: []llm.ContentBlock{
			{Type: llm.BlockToolUse, ID: id, Name: name, Input: input},
		},
		StopReason: "tool_use",
	}
}

func toolResults(msg llm.Message) []llm.ContentBlock {
	var out []llm.ContentBlock
	for _, blk := range msg.Content {
		if blk.Type == llm.BlockToolResult {
			out = append(out, blk)
		}
	}
	return out
}

func TestLoop_NoToolCallsEndsImmediately(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{textResponse("just a question back")}}
	loop := NewLoop(client, registry.New(), 0, -1, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "hi")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Empty(t, result.Plan)
	assert.False(t, result.StrippedDangling)
	assert.Len(t, result.Messages, 1, "no tool turns should be appended")
	assert.Equal(t, "just a question back", result.LastResponse.Text())
}

func TestLoop_SingleRoundAccumulatesPlan(t *testing.T) {
	ct := &countingTool{name: "get_weather", output: map[string]any{"day": 1, "conditions": "sunny"}}
	reg := registry.New()
	reg.Register(ct)

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_1", "get_weather", map[string]any{"location": "Lyon"}),
		textResponse("here is the forecast"),
	}}
	loop := NewLoop(client, reg, 0, -1, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "weather?")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, ct.executed)
	assert.Equal(t, 2, client.calls)

	// assistant 原样回写 + tool_result user 轮
	require.Len(t, result.Messages, 3)
	assert.Equal(t, "assistant", result.Messages[1].Role)
	results := toolResults(result.Messages[2])
	require.Len(t, results, 1)
	assert.Equal(t, "toolu_1", results[0].ToolUseID)
	assert.False(t, results[0].IsError)

	entry, ok := result.Plan["get_weather"].(map[string]any)
	require.True(t, ok, "plan entry shape = %T", result.Plan["get_weather"])
	assert.Equal(t, "sunny", entry["conditions"])
}

func TestLoop_EmptyInputShortCircuits(t *testing.T) {
	ct := &countingTool{name: "get_weather"}
	reg := registry.New()
	reg.Register(ct)

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_1", "get_weather", nil),
		textResponse("done"),
	}}
	loop := NewLoop(client, reg, 0, -1, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, ct.executed, "executor must not run on empty input")
	results := toolResults(result.Messages[2])
	require.Len(t, results, 1, "exactly one result per tool_use id")
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, string(MissingInput))
	assert.Empty(t, result.Plan)
}

func TestLoop_ValidationErrorCarriesFieldDetail(t *testing.T) {
	ct := &countingTool{name: "get_weather"}
	reg := registry.New()
	reg.Register(ct)

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_1", "get_weather", map[string]any{"location": 42.0}),
		textResponse("done"),
	}}
	loop := NewLoop(client, reg, 0, -1, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, ct.executed)
	results := toolResults(result.Messages[2])
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, string(ValidationFailed))
	assert.Contains(t, results[0].Content, "location")
}

func TestLoop_UnknownToolAndExecutionError(t *testing.T) {
	failing := &countingTool{name: "get_weather", err: fmt.Errorf("upstream unavailable")}
	reg := registry.New()
	reg.Register(failing)

	client := &scriptedClient{responses: []*llm.Response{
		{
			Content: []llm.ContentBlock{
				{Type: llm.BlockToolUse, ID: "toolu_1", Name: "no_such_tool", Input: map[string]any{"x": 1.0}},
				{Type: llm.BlockToolUse, ID: "toolu_2", Name: "get_weather", Input: map[string]any{"location": "Lyon"}},
			},
			StopReason: "tool_use",
		},
		textResponse("done"),
	}}
	loop := NewLoop(client, reg, 0, -1, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.NoError(t, err, "tool failures must never escape the loop")

	results := toolResults(result.Messages[2])
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.IsError)
		assert.Contains(t, r.Content, string(ExecutionFailed))
	}
	assert.Empty(t, result.Plan)
}

func TestLoop_RoundBoundStripsDanglingToolUse(t *testing.T) {
	ct := &countingTool{name: "get_weather", output: map[string]any{"ok": true}}
	reg := registry.New()
	reg.Register(ct)

	// 模型永远继续要求调用工具
	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_n", "get_weather", map[string]any{"location": "Lyon"}),
	}}
	loop := NewLoop(client, reg, 4, 2, nil)

	result, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, ct.executed, "4 primary + 2 cleanup rounds")
	assert.Equal(t, 7, client.calls, "initial call + one follow-up per round")
	assert.True(t, result.StrippedDangling)
	require.Len(t, result.PendingCalls, 1)
	assert.Equal(t, "get_weather", result.PendingCalls[0].Name)
	for _, blk := range result.LastResponse.Content {
		assert.NotEqual(t, llm.BlockToolUse, blk.Type, "no tool_use may survive the bound")
	}
}

func TestLoop_CleanupRoundsGetPromptSuffix(t *testing.T) {
	ct := &countingTool{name: "get_weather", output: map[string]any{"ok": true}}
	reg := registry.New()
	reg.Register(ct)

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_n", "get_weather", map[string]any{"location": "Lyon"}),
	}}
	loop := NewLoop(client, reg, 2, 1, nil)

	_, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.NoError(t, err)

	require.Len(t, client.systems, 4)
	assert.Equal(t, SystemPromptTools, client.systems[0])
	assert.Equal(t, SystemPromptTools, client.systems[1], "round 1 follow-up stays in primary mode")
	assert.True(t, strings.HasSuffix(client.systems[2], CleanupPromptSuffix))
	assert.True(t, strings.HasSuffix(client.systems[3], CleanupPromptSuffix))
}

func TestLoop_NotifierFailuresAbsorbed(t *testing.T) {
	ct := &countingTool{name: "get_weather", output: map[string]any{"ok": true}}
	reg := registry.New()
	reg.Register(ct)

	client := &scriptedClient{responses: []*llm.Response{
		toolUseResponse("toolu_1", "get_weather", map[string]any{"location": "Lyon"}),
		textResponse("done"),
	}}
	loop := NewLoop(client, reg, 0, -1, nil)

	_, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, panickyNotifier{})
	require.NoError(t, err)
	assert.Equal(t, 1, ct.executed)
}

type panickyNotifier struct{}

func (panickyNotifier) Notify(ctx context.Context, event ProgressEvent) error {
	panic("notifier exploded")
}

func TestLoop_GatewayErrorIsFatal(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("missing credentials")}
	loop := NewLoop(client, registry.New(), 0, -1, nil)

	_, err := loop.Run(context.Background(), "c1", []llm.Message{llm.TextMessage("user", "go")}, nil)
	require.Error(t, err)
}
