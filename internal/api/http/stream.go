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
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/network"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/http1/resp"
	"github.com/google/uuid"

	"trip-agent/internal/agent"
	"trip-agent/internal/agent/orchestrator"
)

// streamDone 流式终结事件：进度事件之后的最后一行
type streamDone struct {
	Stage string `json:"stage"`
	*agent.ChatResult
}

// ndjsonNotifier 把进度事件逐行写入分块响应体，每行一个 JSON 对象
type ndjsonNotifier struct {
	writer network.ExtWriter
}

// Notify 实现 orchestrator.Notifier
func (n *ndjsonNotifier) Notify(ctx context.Context, event orchestrator.ProgressEvent) error {
	return n.writeLine(event)
}

func (n *ndjsonNotifier) writeLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := n.writer.Write(append(line, '\n')); err != nil {
		return err
	}
	return n.writer.Flush()
}

// ChatStream 流式对话：NDJSON 进度事件，最后一行为 done 或 error
// GET /api/chat/stream?conversation_id=xxx&message=yyy
func (h *Handler) ChatStream(c context.Context, ctx *app.RequestContext) {
	message := string(ctx.Query("message"))
	if strings.TrimSpace(message) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "message is required",
		})
		return
	}
	conversationID := string(ctx.Query("conversation_id"))
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx.Response.Header.Set("Content-Type", "application/x-ndjson")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.SetStatusCode(consts.StatusOK)

	writer := resp.NewChunkedBodyWriter(&ctx.Response, ctx.GetWriter())
	ctx.Response.HijackWriter(writer)
	notifier := &ndjsonNotifier{writer: writer}

	result, err := h.chat.Chat(c, conversationID, message, notifier)
	if err != nil {
		h.logger.Error("流式对话回合执行失败", "conversation_id", conversationID, "error", err)
		_ = notifier.writeLine(orchestrator.ProgressEvent{Stage: orchestrator.StageError, Err: err.Error()})
		return
	}
	_ = notifier.writeLine(streamDone{Stage: orchestrator.StageDone, ChatResult: result})
}
