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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trip-agent/internal/model/llm"
	"trip-agent/internal/tool"
	"trip-agent/internal/tool/registry"
	"trip-agent/pkg/log"
	"trip-agent/pkg/metrics"
)

// 轮数默认值：主循环 4 轮，清理 2 轮（仅回填未完成的工具调用，不再请求新工作）
const (
	DefaultMaxRounds     = 4
	DefaultCleanupRounds = 2
)

// LoopResult 一次工具循环的产出
type LoopResult struct {
	// Messages 完整 transcript（含工具往返），保证不以 assistant 结尾
	Messages []llm.Message
	// Plan 累积的工具输出
	Plan Plan
	// LastResponse 最后一次模型回包（悬挂 tool_use 已剥除）
	LastResponse *llm.Response
	// PendingCalls 轮数耗尽后仍未回应、被剥除的 tool_use 块
	PendingCalls []llm.ContentBlock
	// StrippedDangling 是否发生过剥除
	StrippedDangling bool
}

// Loop 工具调用编排循环
type Loop struct {
	client        llm.Client
	registry      *registry.Registry
	maxRounds     int
	cleanupRounds int
	logger        *log.Logger
}

// NewLoop 创建编排循环；maxRounds<=0 或 cleanupRounds<0 时使用默认
func NewLoop(client llm.Client, reg *registry.Registry, maxRounds, cleanupRounds int, logger *log.Logger) *Loop {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if cleanupRounds < 0 {
		cleanupRounds = DefaultCleanupRounds
	}
	return &Loop{
		client:        client,
		registry:      reg,
		maxRounds:     maxRounds,
		cleanupRounds: cleanupRounds,
		logger:        logger,
	}
}

// Run 执行多轮工具调用协议。messages 为已构建好的上下文（以新 user 消息结尾）。
// 仅 Model Gateway 错误向上抛出；工具与通知的任何失败都被就地消化。
func (l *Loop) Run(ctx context.Context, conversationID string, messages []llm.Message, notifier Notifier) (*LoopResult, error) {
	tools := l.registry.Definitions()

	resp, err := l.client.ChatWithTools(ctx, messages, tools, SystemPromptTools)
	if err != nil {
		return nil, fmt.Errorf("tool 模式模型调用失败: %w", err)
	}

	plan := Plan{}
	totalRounds := l.maxRounds + l.cleanupRounds
	for round := 1; round <= totalRounds; round++ {
		uses := resp.ToolUses()
		if len(uses) == 0 {
			break
		}
		safeNotify(ctx, notifier, ProgressEvent{Stage: StageRoundStart, Round: round})

		results := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			safeNotify(ctx, notifier, ProgressEvent{Stage: StageToolCall, Round: round, Tool: use.Name, ToolCallID: use.ID})
			results = append(results, l.runToolCall(ctx, plan, use))
			last := results[len(results)-1]
			safeNotify(ctx, notifier, ProgressEvent{
				Stage:      StageToolResult,
				Round:      round,
				Tool:       use.Name,
				ToolCallID: use.ID,
				Err:        errDetail(last),
			})
		}

		// assistant 原样回写 + 本轮全部工具结果一次性回给模型
		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})
		messages = append(messages, llm.Message{Role: "user", Content: results})

		system := SystemPromptTools
		if round >= l.maxRounds {
			system += CleanupPromptSuffix
		}
		resp, err = l.client.ChatWithTools(ctx, messages, tools, system)
		if err != nil {
			return nil, fmt.Errorf("tool 模式模型调用失败: %w", err)
		}
	}

	result := &LoopResult{Messages: messages, Plan: plan, LastResponse: resp}

	// 轮数耗尽仍有未回应的 tool_use：剥除，避免下游把它当作待执行指令
	if pending := resp.ToolUses(); len(pending) > 0 {
		result.PendingCalls = pending
		result.StrippedDangling = true
		stripped := make([]llm.ContentBlock, 0, len(resp.Content))
		for _, blk := range resp.Content {
			if blk.Type != llm.BlockToolUse {
				stripped = append(stripped, blk)
			}
		}
		resp.Content = stripped
		if l.logger != nil {
			l.logger.Warn("轮数耗尽，剥除悬挂 tool_use", "conversation_id", conversationID, "pending", len(pending))
		}
	}

	safeNotify(ctx, notifier, ProgressEvent{Stage: StageLoopDone, Detail: fmt.Sprintf("%d tools accumulated", len(plan))})
	return result, nil
}

// runToolCall 执行单个 tool_use 并保证恰好产出一条 tool_result。
// 空入参不触达执行器；校验失败与执行失败都折叠为带错误标记的文本结果。
func (l *Loop) runToolCall(ctx context.Context, plan Plan, use llm.ContentBlock) llm.ContentBlock {
	output, terr := l.execute(ctx, use)
	if terr != nil {
		metrics.ToolCallTotal.WithLabelValues(use.Name, string(terr.Kind)).Inc()
		if l.logger != nil {
			l.logger.Warn("工具调用失败", "tool", use.Name, "kind", string(terr.Kind), "error", terr.Message)
		}
		return llm.ContentBlock{
			Type:      llm.BlockToolResult,
			ToolUseID: use.ID,
			Content:   terr.Error(),
			IsError:   true,
		}
	}

	plan.Accumulate(use.Name, output)
	metrics.ToolCallTotal.WithLabelValues(use.Name, "ok").Inc()

	content, err := json.Marshal(output)
	if err != nil {
		content = []byte(fmt.Sprintf("%v", output))
	}
	return llm.ContentBlock{
		Type:      llm.BlockToolResult,
		ToolUseID: use.ID,
		Content:   string(content),
	}
}

// execute 单次工具执行：返回输出或闭集类别的 ToolCallError
func (l *Loop) execute(ctx context.Context, use llm.ContentBlock) (output any, terr *ToolCallError) {
	t, ok := l.registry.Get(use.Name)
	if !ok {
		return nil, &ToolCallError{Kind: ExecutionFailed, Message: fmt.Sprintf("unknown tool %q", use.Name)}
	}
	if len(use.Input) == 0 {
		return nil, &ToolCallError{Kind: MissingInput, Message: "missing required fields"}
	}
	if err := tool.ValidateInput(t.Schema(), use.Input); err != nil {
		return nil, &ToolCallError{Kind: ValidationFailed, Message: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			output = nil
			terr = &ToolCallError{Kind: ExecutionFailed, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	start := time.Now()
	out, err := t.Execute(ctx, use.Input)
	metrics.ToolDuration.WithLabelValues(use.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &ToolCallError{Kind: ExecutionFailed, Message: err.Error()}
	}
	return out, nil
}

// errDetail 取 tool_result 的错误文本（无错误时为空）
func errDetail(blk llm.ContentBlock) string {
	if blk.IsError {
		return blk.Content
	}
	return ""
}
