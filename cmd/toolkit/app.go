package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/config"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/dispatch"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/mcpserver"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/tool"
)

// app is the wiring shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	facade   *dispatch.Facade
	mcp      *mcpserver.Server
	shutdown telemetry.ShutdownFunc
}

// newApp loads configuration, installs logging and telemetry, and builds the
// tool catalog. With validate set an invalid configuration (e.g. no weather
// API key) is fatal.
func newApp(ctx context.Context, configPath string, validate bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	observer, err := telemetry.NewGlobalObserver()
	if err != nil {
		return nil, fmt.Errorf("create observer: %w", err)
	}

	executor := tool.NewExecutor(tool.NewBuiltinRegistry(cfg))
	facade := dispatch.New(executor, dispatch.WithObserver(observer), dispatch.WithLogger(logger))

	mcp := mcpserver.New(cfg.Server.Name, cfg.Server.Version, facade)
	mcp.Use(mcpserver.RecoveryMiddleware(logger), mcpserver.LoggingMiddleware(logger))
	mcp.SetMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	return &app{
		cfg:      cfg,
		logger:   logger,
		facade:   facade,
		mcp:      mcp,
		shutdown: shutdown,
	}, nil
}

func (a *app) Close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}

// newLogger always writes to stderr; stdout carries MCP frames.
func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
