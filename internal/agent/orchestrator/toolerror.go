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

// ToolErrorKind 工具调用失败类别（闭集）
type ToolErrorKind string

const (
	// MissingInput 入参为空/缺失，未调用执行器
	MissingInput ToolErrorKind = "missing_input"
	// ValidationFailed 入参未通过工具 Schema 校验
	ValidationFailed ToolErrorKind = "validation_failed"
	// ExecutionFailed 执行器返回错误或 panic 的兜底类别
	ExecutionFailed ToolErrorKind = "execution_failed"
)

// ToolCallError 单次工具调用失败：作为文本工具结果回给模型，从不向上抛出
type ToolCallError struct {
	Kind    ToolErrorKind
	Message string
}

// Error 实现 error
func (e *ToolCallError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
