// Package config defines the process configuration model and its HCL loader.
//
// Configuration is optional: every field has a default, and a missing config
// file yields the default model unchanged. The loader only overrides what a
// file explicitly sets.
package config

import "time"

// Server configures the HTTP listener.
type Server struct {
	ListenAddr string
}

// Defaults is the engine-wide retry and timeout policy applied to nodes that
// carry no overrides of their own.
type Defaults struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
	BackoffMax  time.Duration
	Jitter      bool
}

// Logging configures the process logger.
type Logging struct {
	Level  string
	Format string
}

// Agent pre-registers a named agent at startup.
type Agent struct {
	Name   string
	Kind   string
	Config map[string]any
}

// Config is the full, format-agnostic process configuration.
type Config struct {
	Server   Server
	Defaults Defaults
	Logging  Logging
	Agents   []Agent
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: Server{ListenAddr: ":8080"},
		Defaults: Defaults{
			MaxAttempts: 3,
			Timeout:     30 * time.Second,
			Backoff:     200 * time.Millisecond,
			BackoffMax:  5 * time.Second,
			Jitter:      true,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}
