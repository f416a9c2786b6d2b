package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/flowgrid/internal/api"
	"github.com/vk/flowgrid/internal/runstore"
	"github.com/vk/flowgrid/internal/specfile"
)

// shutdownGrace bounds how long in-flight HTTP requests get on shutdown.
// Background runs are not waited for; their state stays queryable until the
// process exits.
const shutdownGrace = 5 * time.Second

// Serve runs the HTTP API until the context is canceled, then shuts the
// listener down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ctx = a.loggedContext(ctx)

	server := &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: api.NewServer(a.orch, a.logger).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP API listening.", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down HTTP API.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunSpecFile executes a single run from a spec file, waits for it to settle,
// and prints the final run state as JSON. The run's terminal status becomes
// the return value: a failed run is an error.
func (a *App) RunSpecFile(ctx context.Context, path string) error {
	ctx = a.loggedContext(ctx)

	spec, err := specfile.Load(path)
	if err != nil {
		return err
	}

	runID, err := a.orch.SubmitRun(spec)
	if err != nil {
		return err
	}
	if err := a.orch.WaitForRun(ctx, runID); err != nil {
		return err
	}

	state, err := a.orch.GetRun(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}

	if state.Status != runstore.RunSucceeded {
		return fmt.Errorf("run %s finished with status %s", runID, state.Status)
	}
	return nil
}
