// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"trip-agent/pkg/errors"
	"trip-agent/pkg/metrics"
)

// structuredToolName 结构化输出所用的合成工具名（tool_choice 强制命中）
const structuredToolName = "record_response"

// ClaudeClient Claude 客户端（Anthropic Messages API）
type ClaudeClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewClaudeClient 创建新的 Claude 客户端；apiKey 为空视为配置缺失（gateway-fatal）
func NewClaudeClient(model, apiKey, baseURL string) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrMissingAPIKey, "claude")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
		if envURL := os.Getenv("ANTHROPIC_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &ClaudeClient{
		provider: "claude",
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

// apiBlock Messages API 线格式内容块
type apiBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// apiMessage Messages API 线格式消息
type apiMessage struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

// apiResponse Messages API 回包
type apiResponse struct {
	Content    []apiBlock `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// apiTool Messages API 工具定义
type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// encodeMessages 将内部消息转为线格式
func encodeMessages(messages []Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))
	for _, m := range messages {
		blocks := make([]apiBlock, 0, len(m.Content))
		for _, blk := range m.Content {
			wire := apiBlock{Type: blk.Type}
			switch blk.Type {
			case BlockText:
				wire.Text = blk.Text
			case BlockToolUse:
				wire.ID = blk.ID
				wire.Name = blk.Name
				input := blk.Input
				if input == nil {
					input = map[string]any{}
				}
				raw, err := json.Marshal(input)
				if err != nil {
					raw = []byte("{}")
				}
				wire.Input = raw
			case BlockToolResult:
				wire.ToolUseID = blk.ToolUseID
				wire.Content = blk.Content
				wire.IsError = blk.IsError
			}
			blocks = append(blocks, wire)
		}
		out = append(out, apiMessage{Role: m.Role, Content: blocks})
	}
	return out
}

// decodeBlock 线格式 → tagged ContentBlock（唯一的边界转换点）
func decodeBlock(wire apiBlock) ContentBlock {
	blk := ContentBlock{Type: wire.Type}
	switch wire.Type {
	case BlockText:
		blk.Text = wire.Text
	case BlockToolUse:
		blk.ID = wire.ID
		blk.Name = wire.Name
		blk.Input = map[string]any{}
		if len(wire.Input) > 0 {
			_ = json.Unmarshal(wire.Input, &blk.Input)
		}
	case BlockToolResult:
		blk.ToolUseID = wire.ToolUseID
		blk.Content = wire.Content
		blk.IsError = wire.IsError
	}
	return blk
}

// send 发送一次 Messages API 请求
func (c *ClaudeClient) send(ctx context.Context, body map[string]any) (*apiResponse, error) {
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(body).
		Post(c.baseURL + "/messages")

	if err != nil {
		return nil, fmt.Errorf("调用 Claude API 失败: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Claude API 返回错误: %s", response.String())
	}

	var result apiResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Claude 响应失败: %w", err)
	}
	return &result, nil
}

// ChatWithTools 实现 Client.ChatWithTools
func (c *ClaudeClient) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*Response, error) {
	request := map[string]any{
		"model":      c.model,
		"max_tokens": 4096,
		"messages":   encodeMessages(messages),
	}
	if system != "" {
		request["system"] = system
	}
	if len(tools) > 0 {
		apiTools := make([]apiTool, 0, len(tools))
		for _, t := range tools {
			schema := t.InputSchema
			if schema == nil {
				schema = map[string]any{"type": "object"}
			}
			apiTools = append(apiTools, apiTool{Name: t.Name, Description: t.Description, InputSchema: schema})
		}
		request["tools"] = apiTools
	}

	result, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	metrics.ModelCallTotal.WithLabelValues("tools").Inc()
	metrics.LLMTokensTotal.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))

	resp := &Response{StopReason: result.StopReason}
	resp.Usage = Usage{InputTokens: result.Usage.InputTokens, OutputTokens: result.Usage.OutputTokens}
	for _, wire := range result.Content {
		resp.Content = append(resp.Content, decodeBlock(wire))
	}
	return resp, nil
}

// ChatStructured 实现 Client.ChatStructured：tool_choice 强制命中合成工具，其 input 即结构化结果。
// messages 不能以 assistant 结尾，否则受约束解码无效。
func (c *ClaudeClient) ChatStructured(ctx context.Context, messages []Message, system string, schema map[string]any) (json.RawMessage, error) {
	if n := len(messages); n > 0 && messages[n-1].Role == "assistant" {
		return nil, fmt.Errorf("结构化调用的消息序列不能以 assistant 结尾")
	}
	request := map[string]any{
		"model":      c.model,
		"max_tokens": 4096,
		"messages":   encodeMessages(messages),
		"tools": []apiTool{{
			Name:        structuredToolName,
			Description: "Record the final structured response.",
			InputSchema: schema,
		}},
		"tool_choice": map[string]any{"type": "tool", "name": structuredToolName},
	}
	if system != "" {
		request["system"] = system
	}

	result, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	metrics.ModelCallTotal.WithLabelValues("structured").Inc()
	metrics.LLMTokensTotal.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))

	for _, wire := range result.Content {
		if wire.Type == BlockToolUse && wire.Name == structuredToolName && len(wire.Input) > 0 {
			return json.RawMessage(wire.Input), nil
		}
	}
	return nil, fmt.Errorf("Claude 结构化调用未返回 %s 工具结果", structuredToolName)
}

// Model 返回模型名称
func (c *ClaudeClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string {
	return c.provider
}
