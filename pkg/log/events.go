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

package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventSink 会话事件 JSONL 落盘（每行一条 {ts, conversation_id, event, data}）。
// 写失败一律吞掉：审计日志不允许影响 Agent 主流程。
type EventSink struct {
	mu   sync.Mutex
	path string
}

// NewEventSink 创建事件落盘，path 为空时优先读 AGENT_LOG_PATH，仍为空则禁用
func NewEventSink(path string) *EventSink {
	if path == "" {
		path = os.Getenv("AGENT_LOG_PATH")
	}
	return &EventSink{path: path}
}

// Enabled 是否启用落盘
func (s *EventSink) Enabled() bool {
	return s != nil && s.path != ""
}

// Record 追加一条事件记录
func (s *EventSink) Record(conversationID, event string, data map[string]any) {
	if !s.Enabled() {
		return
	}
	record := map[string]any{
		"ts":              time.Now().UTC().Format(time.RFC3339Nano),
		"conversation_id": conversationID,
		"event":           event,
		"data":            data,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}
