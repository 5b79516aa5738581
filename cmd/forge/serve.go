package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forge-ai/forge-core/internal/config"
	"github.com/forge-ai/forge-core/internal/container"
)

// runServe builds a container and keeps it alive as a host process for the
// two components that only make sense inside a long-lived process rather
// than a per-invocation CLI command: the C10 event bus's WebSocket
// exporter and the cron-triggered scheduled-task runner. It blocks until
// SIGINT/SIGTERM, mirroring how the teacher's GmailHookServer runs.
func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.EventBus.Enabled && !cfg.ScheduledTasks.Enabled {
		return fmt.Errorf("serve: neither event_bus.enabled nor scheduled_tasks.enabled is set in %s, nothing to host", configPath)
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close(cmd.Context())

	if err := c.StartScheduler(cmd.Context()); err != nil {
		return fmt.Errorf("serve: start scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.EventBus.Enabled {
		c.Logger.Info(ctx, "serving with event bus disabled, scheduler only")
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.EventBus.Path, c.EventBus)

	addr := fmt.Sprintf("%s:%d", cfg.EventBus.Bind, cfg.EventBus.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info(ctx, "event bus listening", "addr", addr, "path", cfg.EventBus.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
