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

package app

import (
	"fmt"

	"trip-agent/internal/model/llm"
	"trip-agent/internal/runtime/memory"
	"trip-agent/pkg/config"
	"trip-agent/pkg/log"
)

// Bootstrap 统一初始化：日志、会话记忆、事件落盘，避免在 cmd 内写装配细节
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Memory    memory.Memory
	EventSink *log.EventSink
}

// NewBootstrap 根据配置创建 Bootstrap
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	maxMessages := 0
	eventLogPath := ""
	if cfg != nil {
		maxMessages = cfg.Agent.MaxMessages
		eventLogPath = cfg.Agent.EventLogPath
	}

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Memory:    memory.NewInMemory(maxMessages),
		EventSink: log.NewEventSink(eventLogPath),
	}, nil
}

// NewLLMClientFromConfig 按配置的默认 Provider 构建 Model Gateway，并套上限流
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("缺少模型配置")
	}
	providerName := cfg.Model.Defaults.LLM
	if providerName == "" {
		providerName = "claude"
	}
	providerCfg, ok := cfg.Model.LLM.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("模型配置缺少 provider %q", providerName)
	}

	modelName := ""
	for _, m := range providerCfg.Models {
		modelName = m.Name
		break
	}

	client, err := llm.NewClient(providerName, modelName, providerCfg.APIKey, providerCfg.BaseURL)
	if err != nil {
		return nil, err
	}

	limits := map[string]llm.LLMLimitConfig{}
	for name, rl := range cfg.RateLimits.LLM {
		limits[name] = llm.LLMLimitConfig{
			TokensPerMinute:   rl.TokensPerMinute,
			RequestsPerMinute: rl.RequestsPerMinute,
			MaxConcurrent:     rl.MaxConcurrent,
		}
	}
	return llm.NewRateLimitedClient(client, llm.NewLLMRateLimiter(limits, nil)), nil
}
