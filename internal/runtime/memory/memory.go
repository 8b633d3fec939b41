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

package memory

import (
	"sync"

	"trip-agent/internal/model/llm"
)

const defaultMaxMessages = 50

// State 键约定
const (
	StateKeyLastPlanSummary = "last_plan_summary"
)

// Memory 会话记忆：有界消息历史 + 不透明状态表
type Memory interface {
	// GetHistory 返回该会话的历史消息（最近 max 条，副本）
	GetHistory(conversationID string) []llm.Message
	// AppendMessage 追加一条消息，超过上限时丢弃最旧的
	AppendMessage(conversationID string, msg llm.Message)
	// GetState 返回该会话的状态表副本
	GetState(conversationID string) map[string]any
	// UpdateState 浅合并状态表
	UpdateState(conversationID string, delta map[string]any)
}

// InMemory 进程内实现（map + mutex），会话首次引用时惰性创建，进程生命周期内不销毁
type InMemory struct {
	mu       sync.RWMutex
	maxPer   int
	messages map[string][]llm.Message
	state    map[string]map[string]any
}

// NewInMemory 创建进程内会话记忆，maxMessagesPerConversation 为 0 时默认 50
func NewInMemory(maxMessagesPerConversation int) *InMemory {
	if maxMessagesPerConversation <= 0 {
		maxMessagesPerConversation = defaultMaxMessages
	}
	return &InMemory{
		maxPer:   maxMessagesPerConversation,
		messages: make(map[string][]llm.Message),
		state:    make(map[string]map[string]any),
	}
}

// GetHistory 实现 Memory
func (m *InMemory) GetHistory(conversationID string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.messages[conversationID]
	if len(list) == 0 {
		return nil
	}
	out := make([]llm.Message, len(list))
	copy(out, list)
	return out
}

// AppendMessage 实现 Memory
func (m *InMemory) AppendMessage(conversationID string, msg llm.Message) {
	if len(msg.Content) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.messages[conversationID], msg)
	if len(list) > m.maxPer {
		list = list[len(list)-m.maxPer:]
	}
	m.messages[conversationID] = list
}

// GetState 实现 Memory
func (m *InMemory) GetState(conversationID string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.state[conversationID]))
	for k, v := range m.state[conversationID] {
		out[k] = v
	}
	return out
}

// UpdateState 实现 Memory（浅合并）
func (m *InMemory) UpdateState(conversationID string, delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.state[conversationID]
	if current == nil {
		current = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		current[k] = v
	}
	m.state[conversationID] = current
}
