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

	"trip-agent/internal/model/llm"
	"trip-agent/pkg/log"
)

// 缺少关键信息时的固定追问集
var clarifyingQuestions = []string{
	"Where does the trip start and end?",
	"How many kilometers would you like to ride per day?",
	"What are your travel dates?",
	"Do you have lodging preferences or a nightly budget?",
	"How tolerant are you of rain or heat on riding days?",
}

const (
	replyClarify = "I need a bit more detail before I can build the plan - could you answer the questions below?"
	replyPlan    = "Here is the day-by-day plan I put together."
	replyFailed  = "Sorry, I could not put a plan together this time. Please try rephrasing your request."
)

// FinalizeResult 一个回合的最终产出
type FinalizeResult struct {
	Reply        string
	TripPlan     *TripPlan
	Plan         Plan
	Questions    []string
	PendingCalls []llm.ContentBlock
}

// structuredReply 结构化收尾调用的响应形状
type structuredReply struct {
	Reply       string       `json:"reply"`
	Questions   []string     `json:"questions"`
	Adjustments *Adjustments `json:"adjustments,omitempty"`
}

// Finalizer 收尾器：结构化模型调用 + 计划装配 + 修正应用 + 兜底回复
type Finalizer struct {
	client   llm.Client
	defaults AssembleDefaults
	logger   *log.Logger
}

// NewFinalizer 创建收尾器
func NewFinalizer(client llm.Client, defaults AssembleDefaults, logger *log.Logger) *Finalizer {
	return &Finalizer{client: client, defaults: defaults, logger: logger}
}

// Finalize 产出本回合最终 (reply, TripPlan, questions) 三元组。
// 结构化调用失败只降级为纯文本回退，从不向上抛出；Reply 保证非空。
func (f *Finalizer) Finalize(ctx context.Context, lr *LoopResult) *FinalizeResult {
	result := &FinalizeResult{Plan: lr.Plan, PendingCalls: lr.PendingCalls}
	result.TripPlan = Assemble(lr.Plan, f.defaults)

	sr, ok := f.structuredCall(ctx, lr.Messages)
	if ok {
		result.Reply = sr.Reply
		result.Questions = sr.Questions
		if sr.Adjustments != nil && result.TripPlan != nil {
			applyAdjustments(result.TripPlan, sr.Adjustments)
		}
	} else {
		// 回退：拼接工具循环最后一次响应的全部纯文本块，跳过修正
		if lr.LastResponse != nil {
			result.Reply = lr.LastResponse.Text()
		}
	}

	// 既无计划也无待办与追问：合成固定追问集
	if result.TripPlan == nil && len(result.PendingCalls) == 0 && len(result.Questions) == 0 {
		result.Questions = append([]string(nil), clarifyingQuestions...)
	}

	if result.Reply == "" {
		switch {
		case len(result.Questions) > 0:
			result.Reply = replyClarify
		case result.TripPlan != nil:
			result.Reply = replyPlan
		default:
			result.Reply = replyFailed
		}
	}
	return result
}

// structuredCall 结构化收尾调用；失败或解析不出时返回 ok=false
func (f *Finalizer) structuredCall(ctx context.Context, messages []llm.Message) (*structuredReply, bool) {
	raw, err := f.client.ChatStructured(ctx, messages, SystemPromptFinalize, FinalizeSchema)
	if err != nil {
		if f.logger != nil {
			f.logger.Warn("结构化收尾调用失败，回退为纯文本", "error", err)
		}
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	var sr structuredReply
	if err := json.Unmarshal(raw, &sr); err != nil {
		if f.logger != nil {
			f.logger.Warn("结构化响应解析失败", "error", err)
		}
		return nil, false
	}
	return &sr, true
}

// applyAdjustments 把收尾修正套到已装配的 TripPlan 上：
// 先逐日备注覆写（无匹配天号的覆写忽略），再调整天数——
// 扩展时从最后已知终点克隆零距离天，收缩时截断，并同步 Days。
func applyAdjustments(trip *TripPlan, adj *Adjustments) {
	for _, ov := range adj.NoteOverrides {
		for i := range trip.Itinerary {
			if trip.Itinerary[i].Day == ov.Day {
				trip.Itinerary[i].Notes = ov.Notes
			}
		}
	}

	if adj.TargetDays == nil {
		return
	}
	target := *adj.TargetDays
	if target <= 0 || len(trip.Itinerary) == 0 || target == len(trip.Itinerary) {
		return
	}

	if target < len(trip.Itinerary) {
		trip.Itinerary = trip.Itinerary[:target]
	} else {
		last := trip.Itinerary[len(trip.Itinerary)-1]
		for day := last.Day + 1; len(trip.Itinerary) < target; day++ {
			trip.Itinerary = append(trip.Itinerary, DayPlan{
				Day:        day,
				Start:      last.End,
				End:        last.End,
				DistanceKm: 0,
				Notes:      "Flexible day added on request",
			})
		}
	}
	trip.Days = target
}
