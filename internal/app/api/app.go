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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"trip-agent/internal/agent"
	"trip-agent/internal/agent/orchestrator"
	"trip-agent/internal/api/http"
	"trip-agent/internal/api/http/middleware"
	"trip-agent/internal/app"
	"trip-agent/internal/tool/builtin"
	"trip-agent/internal/tool/registry"
	"trip-agent/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配 Model Gateway、工具注册表、Agent 与 HTTP Router
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config

	client, err := app.NewLLMClientFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("构建 Model Gateway 失败: %w", err)
	}

	reg := registry.New()
	toolOpts := builtin.Options{}
	defaults := orchestrator.AssembleDefaults{}
	maxRounds, cleanupRounds := 0, -1
	if cfg != nil {
		toolOpts = builtin.Options{
			LiveData:           cfg.Tools.LiveData,
			GeocodingURL:       cfg.Tools.GeocodingURL,
			ForecastURL:        cfg.Tools.ForecastURL,
			RequestTimeout:     utils.ParseDuration(cfg.Tools.RequestTimeout, 8*time.Second),
			DefaultCurrency:    cfg.Agent.Currency,
			DefaultNationality: cfg.Agent.Nationality,
		}
		defaults = orchestrator.AssembleDefaults{
			NightlyBudget:     cfg.Tools.NightlyBudget,
			FoodPerDay:        cfg.Tools.FoodPerDay,
			IncidentalsPerDay: cfg.Tools.IncidentalsPerDay,
			Currency:          cfg.Agent.Currency,
		}
		maxRounds = cfg.Agent.MaxToolRounds
		cleanupRounds = cfg.Agent.CleanupRounds
	}
	builtin.RegisterBuiltin(reg, toolOpts, bootstrap.Logger)

	tripAgent := agent.New(
		client,
		reg,
		bootstrap.Memory,
		maxRounds,
		cleanupRounds,
		defaults,
		bootstrap.Logger,
		agent.WithEventSink(bootstrap.EventSink),
	)

	handler := http.NewHandler(tripAgent, bootstrap.Logger)
	router := http.NewRouter(handler, middleware.NewMiddleware())

	return &App{
		config: bootstrap,
		router: router,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if a.config.Config != nil && a.config.Config.Log.File != "" {
		f, err := os.OpenFile(a.config.Config.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	if a.config.Config != nil && a.config.Config.Log.Level != "" {
		switch a.config.Config.Log.Level {
		case "debug":
			levelVar.Set(slog.LevelDebug)
		case "warn":
			levelVar.Set(slog.LevelWarn)
		case "error":
			levelVar.Set(slog.LevelError)
		default:
			levelVar.Set(slog.LevelInfo)
		}
	} else {
		levelVar.Set(slog.LevelInfo)
	}
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	)
	hlog.SetLogger(hertzLogger)

	// 可选：启用链路追踪（OpenTelemetry）
	if a.config.Config != nil && a.config.Config.Monitoring.Tracing.Enable {
		serviceName := a.config.Config.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "trip-agent-api"
		}
		exportEndpoint := a.config.Config.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if a.config.Config.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			p := provider.NewOpenTelemetryProvider(opts...)
			a.otelProvider = p
			tracerOpt, cfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(cfg))
			a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		} else {
			a.hertz = a.router.Build(addr)
		}
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
