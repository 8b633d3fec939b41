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
)

// RateLimitedClient 包装任意 Client，在真实调用前后执行限流控制
type RateLimitedClient struct {
	inner       Client
	rateLimiter *LLMRateLimiter
}

// NewRateLimitedClient 创建带限流的 Model Gateway 客户端。rateLimiter 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, rateLimiter *LLMRateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, rateLimiter: rateLimiter}
}

// estimateTokens 粗略估算消息 token 数（len/4 近似）
func estimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		for _, blk := range m.Content {
			total += len(blk.Text) + len(blk.Content)
		}
	}
	return total/4 + 1024 // 预留生成配额
}

// ChatWithTools 实现 Client.ChatWithTools，调用前后执行限流
func (c *RateLimitedClient) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*Response, error) {
	if c.rateLimiter != nil {
		provider := c.inner.Provider()
		if err := c.rateLimiter.Wait(ctx, provider, estimateTokens(messages)); err != nil {
			return nil, err
		}
		defer c.rateLimiter.Release(provider)
	}
	return c.inner.ChatWithTools(ctx, messages, tools, system)
}

// ChatStructured 实现 Client.ChatStructured，调用前后执行限流
func (c *RateLimitedClient) ChatStructured(ctx context.Context, messages []Message, system string, schema map[string]any) (json.RawMessage, error) {
	if c.rateLimiter != nil {
		provider := c.inner.Provider()
		if err := c.rateLimiter.Wait(ctx, provider, estimateTokens(messages)); err != nil {
			return nil, err
		}
		defer c.rateLimiter.Release(provider)
	}
	return c.inner.ChatStructured(ctx, messages, system, schema)
}

// Model 实现 Client.Model
func (c *RateLimitedClient) Model() string {
	return c.inner.Model()
}

// Provider 实现 Client.Provider
func (c *RateLimitedClient) Provider() string {
	return c.inner.Provider()
}
