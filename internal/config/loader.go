package config

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/flowgrid/internal/ctxlog"
)

// fileRoot is the HCL schema of a config file. Attributes that accept more
// than one shape (durations, free-form agent config) decode as expressions
// and are evaluated during translation.
type fileRoot struct {
	Server   *serverBlock   `hcl:"server,block"`
	Defaults *defaultsBlock `hcl:"defaults,block"`
	Logging  *loggingBlock  `hcl:"logging,block"`
	Agents   []*agentBlock  `hcl:"agent,block"`
}

type serverBlock struct {
	ListenAddr *string `hcl:"listen_addr,optional"`
}

type defaultsBlock struct {
	MaxAttempts *int           `hcl:"max_attempts,optional"`
	Timeout     hcl.Expression `hcl:"timeout,optional"`
	Backoff     hcl.Expression `hcl:"backoff,optional"`
	BackoffMax  hcl.Expression `hcl:"backoff_max,optional"`
	Jitter      *bool          `hcl:"jitter,optional"`
}

type loggingBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type agentBlock struct {
	Name   string         `hcl:"name,label"`
	Kind   string         `hcl:"kind"`
	Config hcl.Expression `hcl:"config,optional"`
}

// Load parses an HCL config file and merges it over the defaults. An empty
// path returns the default configuration.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading config file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	if err := mergeRoot(cfg, &root); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	logger.Debug("Config loaded.", "listen_addr", cfg.Server.ListenAddr, "agents", len(cfg.Agents))
	return cfg, nil
}

func mergeRoot(cfg *Config, root *fileRoot) error {
	if root.Server != nil && root.Server.ListenAddr != nil {
		cfg.Server.ListenAddr = *root.Server.ListenAddr
	}

	if d := root.Defaults; d != nil {
		if d.MaxAttempts != nil {
			cfg.Defaults.MaxAttempts = *d.MaxAttempts
		}
		if d.Jitter != nil {
			cfg.Defaults.Jitter = *d.Jitter
		}
		for _, f := range []struct {
			expr hcl.Expression
			name string
			dst  *time.Duration
		}{
			{d.Timeout, "timeout", &cfg.Defaults.Timeout},
			{d.Backoff, "backoff", &cfg.Defaults.Backoff},
			{d.BackoffMax, "backoff_max", &cfg.Defaults.BackoffMax},
		} {
			if !isExprDefined(f.expr) {
				continue
			}
			v, err := durationFromExpr(f.expr)
			if err != nil {
				return fmt.Errorf("defaults.%s: %w", f.name, err)
			}
			*f.dst = v
		}
	}

	if l := root.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		if l.Format != nil {
			cfg.Logging.Format = *l.Format
		}
	}

	for _, a := range root.Agents {
		conf, err := mapFromExpr(a.Config)
		if err != nil {
			return fmt.Errorf("agent %q: config: %w", a.Name, err)
		}
		cfg.Agents = append(cfg.Agents, Agent{Name: a.Name, Kind: a.Kind, Config: conf})
	}
	return nil
}

// isExprDefined reports whether an optional attribute was actually present in
// the source. The decoder populates omitted optional expressions with
// zero-width placeholders, so a nil check alone is not enough.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
