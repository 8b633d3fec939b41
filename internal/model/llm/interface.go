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
	"strings"
)

// 内容块类型（tagged union，边界处由 decode 函数统一转换）
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock 消息内容块：text / tool_use / tool_result 三种变体
type ContentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message 对话消息（role: user | assistant），Content 追加入会话时不为空
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage 构造纯文本消息
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// Text 拼接消息中的全部文本块
func (m Message) Text() string {
	var b strings.Builder
	for _, blk := range m.Content {
		if blk.Type == BlockText {
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

// ToolDefinition 供 function-calling 使用的工具描述
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Usage 单次调用 token 用量
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response Model Gateway 的回包：有序内容块 + 停止原因
type Response struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}

// Text 拼接回包中的全部文本块
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, blk := range r.Content {
		if blk.Type == BlockText {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

// ToolUses 按出现顺序返回回包中的全部 tool_use 块
func (r *Response) ToolUses() []ContentBlock {
	if r == nil {
		return nil
	}
	var out []ContentBlock
	for _, blk := range r.Content {
		if blk.Type == BlockToolUse {
			out = append(out, blk)
		}
	}
	return out
}

// Client Model Gateway 客户端接口
type Client interface {
	// ChatWithTools 携带工具定义的对话调用，返回含 text / tool_use 块的回包
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*Response, error)
	// ChatStructured 受 schema 约束的结构化调用，返回满足 schema 的原始 JSON
	ChatStructured(ctx context.Context, messages []Message, system string, schema map[string]any) (json.RawMessage, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// NewClient 创建新的 Model Gateway 客户端；baseURL 为空时使用默认或环境变量
func NewClient(provider, model, apiKey, baseURL string) (Client, error) {
	switch provider {
	case "claude", "":
		return NewClaudeClient(model, apiKey, baseURL)
	default:
		return NewClaudeClient(model, apiKey, baseURL)
	}
}
