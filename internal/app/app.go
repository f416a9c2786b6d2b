// Package app wires configuration, the agent registry, the orchestrator, and
// the HTTP API into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/flowgrid/internal/agent"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/orchestrator"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/runstore"
)

// Options holds the startup parameters resolved from the command line.
// Non-empty values override the corresponding config file settings.
type Options struct {
	ConfigPath string
	SpecPath   string
	ListenAddr string
	LogLevel   string
	LogFormat  string
}

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
}

// NewApp loads configuration, builds the logger, and assembles a fully
// initialized application. Every compiled-in agent kind starts registered
// under its own name; config file agents are applied on top.
func NewApp(ctx context.Context, outW io.Writer, opts Options) (*App, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.ListenAddr != "" {
		cfg.Server.ListenAddr = opts.ListenAddr
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format, outW)
	logger.Debug("Logger configured successfully.")

	orch := orchestrator.New(registry.New(), runstore.New(), engine.Defaults{
		MaxAttempts: cfg.Defaults.MaxAttempts,
		Timeout:     cfg.Defaults.Timeout,
		Backoff:     cfg.Defaults.Backoff,
		BackoffMax:  cfg.Defaults.BackoffMax,
		Jitter:      cfg.Defaults.Jitter,
	}, logger)

	for _, kind := range agent.Kinds() {
		if err := orch.RegisterAgent(kind, kind, nil); err != nil {
			return nil, fmt.Errorf("registering built-in agent %q: %w", kind, err)
		}
	}
	for _, a := range cfg.Agents {
		if err := orch.RegisterAgent(a.Name, a.Kind, a.Config); err != nil {
			return nil, fmt.Errorf("registering configured agent %q: %w", a.Name, err)
		}
	}
	logger.Debug("Agents registered.", "count", len(orch.ListAgents()))

	return &App{outW: outW, logger: logger, cfg: cfg, orch: orch}, nil
}

// Orchestrator returns the application's orchestrator. This is primarily for
// testing.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// loggedContext attaches the app logger so downstream packages pick it up.
func (a *App) loggedContext(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
