package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-agent/internal/agent/orchestrator"
	"trip-agent/internal/model/llm"
	"trip-agent/internal/runtime/memory"
	"trip-agent/internal/tool"
	"trip-agent/internal/tool/registry"
)

type replayClient struct {
	responses  []*llm.Response
	calls      int
	seen       [][]llm.Message
	structured json.RawMessage
	err        error
}

func (c *replayClient) ChatWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, system string) (*llm.Response, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.seen = append(c.seen, snapshot)
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

func (c *replayClient) ChatStructured(ctx context.Context, messages []llm.Message, system string, schema map[string]any) (json.RawMessage, error) {
	if c.structured == nil {
		return nil, fmt.Errorf("no structured reply scripted")
	}
	return c.structured, nil
}

func (c *replayClient) Model() string    { return "replay" }
func (c *replayClient) Provider() string { return "test" }

type routeStub struct{}

func (routeStub) Name() string        { return "get_route" }
func (routeStub) Description() string { return "route" }
func (routeStub) Schema() tool.Schema {
	return tool.Schema{
		Properties: map[string]tool.SchemaProperty{
			"start": {Type: "string"},
			"end":   {Type: "string"},
		},
		Required: []string{"start", "end"},
	}
}
func (routeStub) Execute(ctx context.Context, input map[string]any) (any, error) {
	return map[string]any{
		"total_distance_km": 150.0,
		"days":              3,
		"segments": []any{
			map[string]any{"day": 1, "distance_km": 50.0, "start": "Paris", "end": "Midpoint A"},
			map[string]any{"day": 2, "distance_km": 50.0, "start": "Midpoint A", "end": "Midpoint B"},
			map[string]any{"day": 3, "distance_km": 50.0, "start": "Midpoint B", "end": "Lyon"},
		},
	}, nil
}

func newTestAgent(client llm.Client, mem memory.Memory) *Agent {
	reg := registry.New()
	reg.Register(routeStub{})
	return New(client, reg, mem, 4, 2, orchestrator.AssembleDefaults{}, nil)
}

func TestAgent_ChatFullTurn(t *testing.T) {
	client := &replayClient{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: llm.BlockToolUse, ID: "toolu_1", Name: "get_route", Input: map[string]any{"start": "Paris", "end": "Lyon"}},
				},
				StopReason: "tool_use",
			},
			{
				Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: "route is in"}},
				StopReason: "end_turn",
			},
		},
		structured: json.RawMessage(`{"reply": "Here is your 3-day ride from Paris to Lyon.", "questions": []}`),
	}
	mem := memory.NewInMemory(0)
	a := newTestAgent(client, mem)

	result, err := a.Chat(context.Background(), "c1", "Plan Paris to Lyon", nil)
	require.NoError(t, err)

	assert.Equal(t, "c1", result.ConversationID)
	assert.Equal(t, "Here is your 3-day ride from Paris to Lyon.", result.Reply)
	require.NotNil(t, result.TripPlan)
	assert.Equal(t, 3, result.TripPlan.Days)
	assert.Equal(t, 150.0, result.TripPlan.TotalDistanceKm)
	assert.Empty(t, result.ToolCalls, "nothing should be left pending")

	// 回合成功后记忆一次性提交
	history := mem.GetHistory("c1")
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, result.Reply, history[1].Content[0].Text)

	state := mem.GetState("c1")
	summary, ok := state[memory.StateKeyLastPlanSummary].(string)
	require.True(t, ok)
	assert.Contains(t, summary, "3-day trip")
	assert.Contains(t, summary, "Paris to Midpoint A")
}

func TestAgent_PlanSummaryFedBackNextTurn(t *testing.T) {
	client := &replayClient{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: llm.BlockToolUse, ID: "toolu_1", Name: "get_route", Input: map[string]any{"start": "Paris", "end": "Lyon"}},
				},
				StopReason: "tool_use",
			},
			{
				Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: "done"}},
				StopReason: "end_turn",
			},
		},
		structured: json.RawMessage(`{"reply": "Planned.", "questions": []}`),
	}
	mem := memory.NewInMemory(0)
	a := newTestAgent(client, mem)

	_, err := a.Chat(context.Background(), "c1", "Plan Paris to Lyon", nil)
	require.NoError(t, err)

	client.responses = []*llm.Response{{
		Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: "sure"}},
		StopReason: "end_turn",
	}}
	client.calls = 0
	client.structured = json.RawMessage(`{"reply": "Still three days.", "questions": []}`)

	_, err = a.Chat(context.Background(), "c1", "How long was it again?", nil)
	require.NoError(t, err)

	// 第二回合上下文：历史 + 计划摘要合成轮 + 新消息
	secondTurn := client.seen[len(client.seen)-1]
	var summaryTurn *llm.Message
	for i := range secondTurn {
		if secondTurn[i].Role == "assistant" && strings.HasPrefix(secondTurn[i].Content[0].Text, "Current plan on file:") {
			summaryTurn = &secondTurn[i]
		}
	}
	require.NotNil(t, summaryTurn, "plan summary must be injected into the context")
	assert.Contains(t, summaryTurn.Content[0].Text, "150 km total")
	assert.Equal(t, "user", secondTurn[len(secondTurn)-1].Role)
}

func TestAgent_GatewayErrorLeavesMemoryUntouched(t *testing.T) {
	client := &replayClient{err: fmt.Errorf("missing credentials")}
	mem := memory.NewInMemory(0)
	a := newTestAgent(client, mem)

	_, err := a.Chat(context.Background(), "c1", "Plan something", nil)
	require.Error(t, err)

	assert.Empty(t, mem.GetHistory("c1"))
	assert.Empty(t, mem.GetState("c1"))
}

func TestAgent_ConversationsIsolated(t *testing.T) {
	client := &replayClient{
		responses: []*llm.Response{{
			Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: "hello"}},
			StopReason: "end_turn",
		}},
		structured: json.RawMessage(`{"reply": "Hi there.", "questions": []}`),
	}
	mem := memory.NewInMemory(0)
	a := newTestAgent(client, mem)

	_, err := a.Chat(context.Background(), "c1", "hi", nil)
	require.NoError(t, err)
	_, err = a.Chat(context.Background(), "c2", "hello", nil)
	require.NoError(t, err)

	assert.Len(t, mem.GetHistory("c1"), 2)
	assert.Len(t, mem.GetHistory("c2"), 2)
	assert.Equal(t, "hi", mem.GetHistory("c1")[0].Content[0].Text)
	assert.Equal(t, "hello", mem.GetHistory("c2")[0].Content[0].Text)
}
