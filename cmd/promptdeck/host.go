// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/logging"
	"github.com/promptdeck/promptdeck/internal/observability"
	"github.com/promptdeck/promptdeck/internal/plugin"
	"github.com/promptdeck/promptdeck/internal/plugin/lua"
)

// shutdownTimeout bounds graceful teardown at host exit.
const shutdownTimeout = 10 * time.Second

// NewHostCmd creates the host subcommand.
func NewHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run the plugin host",
		Long: `Run the plugin host: scan the plugins directory, load every valid
.ai package, and serve metrics until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("plugins-dir", defaults.PluginsDir, "directory scanned for .ai packages")
	cmd.Flags().Duration("prompt-timeout", defaults.PromptTimeout, "execution window for plugin calls")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")

	return cmd
}

func runHost(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("promptdeck", version, cfg.LogFormat)

	var obs *observability.Server
	var metrics *observability.Metrics
	var ready atomic.Bool
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, ready.Load)
		if _, err := obs.Start(); err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		metrics = obs.Metrics()
	}

	svc := plugin.NewService(lua.NewHost(), cfg.PluginsDir,
		plugin.WithPromptTimeout(cfg.PromptTimeout),
		plugin.WithMetrics(metrics),
	)

	if err := svc.ReloadAll(ctx); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	ready.Store(true)

	slog.Info("plugin host running",
		"plugins_dir", cfg.PluginsDir,
		"plugins", svc.Names())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := svc.Close(shutdownCtx); err != nil {
		slog.Error("error closing plugin service", "error", err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping observability server", "error", err)
		}
	}
	return nil
}
