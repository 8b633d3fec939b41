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

package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"trip-agent/internal/agent/orchestrator"
	"trip-agent/internal/model/llm"
	"trip-agent/internal/runtime/memory"
	"trip-agent/internal/tool/registry"
	"trip-agent/pkg/log"
	"trip-agent/pkg/metrics"
)

// ChatResult 一次对话回合的结果
type ChatResult struct {
	ConversationID string                 `json:"conversation_id"`
	Reply          string                 `json:"reply"`
	TripPlan       *orchestrator.TripPlan `json:"triplan,omitempty"`
	Plan           orchestrator.Plan      `json:"plan,omitempty"`
	Questions      []string               `json:"questions,omitempty"`
	ToolCalls      []string               `json:"tool_calls,omitempty"`
}

// Agent 对话入口：编排循环 + 收尾器 + 会话记忆。
// 同一会话内的回合串行执行；记忆只在回合成功后一次性提交。
type Agent struct {
	loop      *orchestrator.Loop
	finalizer *orchestrator.Finalizer
	memory    memory.Memory
	logger    *log.Logger
	events    *log.EventSink

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option 可选配置
type Option func(*Agent)

// WithEventSink 设置 JSONL 事件落盘
func WithEventSink(sink *log.EventSink) Option {
	return func(a *Agent) {
		a.events = sink
	}
}

// New 创建 Agent
func New(client llm.Client, reg *registry.Registry, mem memory.Memory, maxRounds, cleanupRounds int, defaults orchestrator.AssembleDefaults, logger *log.Logger, opts ...Option) *Agent {
	a := &Agent{
		loop:      orchestrator.NewLoop(client, reg, maxRounds, cleanupRounds, logger),
		finalizer: orchestrator.NewFinalizer(client, defaults, logger),
		memory:    mem,
		logger:    logger,
		locks:     map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Chat 执行一个完整回合：建上下文 -> 工具循环 -> 收尾 -> 提交记忆。
// 仅模型网关失败向上抛出；取消或失败的回合不写记忆。
func (a *Agent) Chat(ctx context.Context, conversationID, userMessage string, notifier orchestrator.Notifier) (*ChatResult, error) {
	lock := a.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	a.recordEvent(conversationID, "turn_start", map[string]any{"message_len": len(userMessage)})

	messages := a.buildContext(conversationID, userMessage)

	lr, err := a.loop.Run(ctx, conversationID, messages, notifier)
	if err != nil {
		metrics.TurnTotal.WithLabelValues("error").Inc()
		a.recordEvent(conversationID, "turn_error", map[string]any{"error": err.Error()})
		return nil, err
	}

	notifyStage(ctx, notifier, orchestrator.ProgressEvent{Stage: orchestrator.StageFinalize})

	fin := a.finalizer.Finalize(ctx, lr)

	a.commit(conversationID, userMessage, fin)

	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	metrics.TurnTotal.WithLabelValues("ok").Inc()
	a.recordEvent(conversationID, "turn_done", map[string]any{
		"has_plan":  fin.TripPlan != nil,
		"questions": len(fin.Questions),
		"tools":     len(fin.Plan),
	})

	return &ChatResult{
		ConversationID: conversationID,
		Reply:          fin.Reply,
		TripPlan:       fin.TripPlan,
		Plan:           fin.Plan,
		Questions:      fin.Questions,
		ToolCalls:      pendingNames(fin.PendingCalls),
	}, nil
}

// buildContext 历史 + 上回合计划摘要（合成 assistant 轮）+ 新 user 消息
func (a *Agent) buildContext(conversationID, userMessage string) []llm.Message {
	history := a.memory.GetHistory(conversationID)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, history...)

	state := a.memory.GetState(conversationID)
	if summary, ok := state[memory.StateKeyLastPlanSummary].(string); ok && summary != "" {
		messages = append(messages, llm.TextMessage("assistant", "Current plan on file:\n"+summary))
	}
	messages = append(messages, llm.TextMessage("user", userMessage))
	return messages
}

// commit 回合成功后的唯一一次记忆写入
func (a *Agent) commit(conversationID, userMessage string, fin *orchestrator.FinalizeResult) {
	a.memory.AppendMessage(conversationID, llm.TextMessage("user", userMessage))
	a.memory.AppendMessage(conversationID, llm.TextMessage("assistant", fin.Reply))
	if fin.TripPlan != nil {
		a.memory.UpdateState(conversationID, map[string]any{
			memory.StateKeyLastPlanSummary: planSummary(fin.TripPlan),
		})
	}
}

// planSummary 把 TripPlan 压成一段可回灌给模型的文本摘要
func planSummary(trip *orchestrator.TripPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-day trip, %.0f km total.", trip.Days, trip.TotalDistanceKm)
	for _, dp := range trip.Itinerary {
		fmt.Fprintf(&b, " Day %d: %s to %s, %.0f km.", dp.Day, dp.Start, dp.End, dp.DistanceKm)
	}
	return b.String()
}

// conversationLock 按会话取互斥锁，避免并发回合互相覆盖记忆
func (a *Agent) conversationLock(conversationID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[conversationID] = lock
	}
	return lock
}

func (a *Agent) recordEvent(conversationID, event string, data map[string]any) {
	if a.events != nil {
		a.events.Record(conversationID, event, data)
	}
}

// notifyStage 与循环内的事件投递同一契约：通知失败或 panic 不影响回合
func notifyStage(ctx context.Context, n orchestrator.Notifier, event orchestrator.ProgressEvent) {
	if n == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = n.Notify(ctx, event)
}

func pendingNames(blocks []llm.ContentBlock) []string {
	if len(blocks) == 0 {
		return nil
	}
	names := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		names = append(names, blk.Name)
	}
	return names
}
