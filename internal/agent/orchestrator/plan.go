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

import "encoding/json"

// Plan 工具输出累积表：key 为工具名。首次调用存裸值，第二次提升为双元素列表，
// 之后继续追加——同一工具按天复用（如 get_weather 每天一次）时保留全部输出。
type Plan map[string]any

// Accumulate 按 accumulate-or-promote-to-list 规则写入一次工具输出。
// 值先做 JSON 规整（struct → map/list/float64），使下游 Assembler 与序列化形状一致。
func (p Plan) Accumulate(name string, value any) {
	normalized := normalizeJSON(value)
	existing, ok := p[name]
	if !ok {
		p[name] = normalized
		return
	}
	if list, isList := existing.([]any); isList {
		p[name] = append(list, normalized)
		return
	}
	p[name] = []any{existing, normalized}
}

// Entries 返回该工具的输出列表（裸值包装为单元素列表）
func (p Plan) Entries(name string) []any {
	v, ok := p[name]
	if !ok {
		return nil
	}
	if list, isList := v.([]any); isList {
		return list
	}
	return []any{v}
}

// normalizeJSON 任意可序列化值 → 纯 JSON 形状（map[string]any / []any / float64 / string / bool / nil）
func normalizeJSON(value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return value
	}
	return out
}
