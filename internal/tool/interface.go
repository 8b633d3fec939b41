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

package tool

import (
	"context"
	"fmt"
)

// Schema 表示工具的 JSON Schema（供 LLM function-calling 使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tool Runtime 级工具接口：输出为任意可 JSON 序列化的值，执行失败返回 error
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// ValidateInput 按 Schema 校验入参：必填字段存在且基础类型匹配，错误信息携带字段细节
func ValidateInput(s Schema, input map[string]any) error {
	for _, req := range s.Required {
		if _, ok := input[req]; !ok {
			return fmt.Errorf("缺少必填字段 %q", req)
		}
	}
	for name, value := range input {
		prop, ok := s.Properties[name]
		if !ok || value == nil {
			continue
		}
		if err := checkType(name, prop.Type, value); err != nil {
			return err
		}
	}
	return nil
}

// checkType 基础类型校验（JSON 解码后数字一律 float64）
func checkType(name, typ string, value any) error {
	switch typ {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("字段 %q 应为 string，实际为 %T", name, value)
		}
	case "number", "integer":
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("字段 %q 应为 %s，实际为 %T", name, typ, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("字段 %q 应为 boolean，实际为 %T", name, value)
		}
	}
	return nil
}
