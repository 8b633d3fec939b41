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

package http

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"trip-agent/internal/agent"
	"trip-agent/internal/agent/orchestrator"
	"trip-agent/pkg/log"
	"trip-agent/pkg/metrics"
)

// ChatService Handler 依赖的对话入口（由 agent.Agent 实现）
type ChatService interface {
	Chat(ctx context.Context, conversationID, userMessage string, notifier orchestrator.Notifier) (*agent.ChatResult, error)
}

// Handler HTTP 处理器
type Handler struct {
	chat   ChatService
	logger *log.Logger
}

// NewHandler 创建 HTTP 处理器
func NewHandler(chat ChatService, logger *log.Logger) *Handler {
	return &Handler{chat: chat, logger: logger}
}

// chatRequest POST /api/chat 请求体
type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "trip-agent-api",
	})
}

// Metrics Prometheus 指标导出
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "collect metrics failed",
		})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// Chat 同步对话
// POST /api/chat
func (h *Handler) Chat(c context.Context, ctx *app.RequestContext) {
	var req chatRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "message is required",
		})
		return
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	result, err := h.chat.Chat(c, conversationID, req.Message, orchestrator.NopNotifier{})
	if err != nil {
		h.logger.Error("对话回合执行失败", "conversation_id", conversationID, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "chat turn failed",
		})
		return
	}
	ctx.JSON(consts.StatusOK, result)
}
