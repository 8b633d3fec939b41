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

import "context"

// 进度事件阶段
const (
	StageRoundStart = "round_start"
	StageToolCall   = "tool_call"
	StageToolResult = "tool_result"
	StageLoopDone   = "loop_done"
	StageFinalize   = "finalize"
	StageDone       = "done"
	StageError      = "error"
)

// ProgressEvent 单条进度事件
type ProgressEvent struct {
	Stage      string `json:"stage"`
	Round      int    `json:"round,omitempty"`
	Tool       string `json:"tool,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Err        string `json:"error,omitempty"`
}

// Notifier 进度通知接收方。投递失败不得影响主流程。
type Notifier interface {
	Notify(ctx context.Context, event ProgressEvent) error
}

// NopNotifier 丢弃全部事件
type NopNotifier struct{}

// Notify 实现 Notifier
func (NopNotifier) Notify(ctx context.Context, event ProgressEvent) error { return nil }

// safeNotify 尽力投递：错误与 panic 一律吞掉
func safeNotify(ctx context.Context, n Notifier, event ProgressEvent) {
	if n == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = n.Notify(ctx, event)
}
