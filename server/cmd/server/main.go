package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/objectstream/objectstream/server/internal/app"
	"github.com/objectstream/objectstream/server/internal/auth"
	"github.com/objectstream/objectstream/server/internal/config"
	"github.com/objectstream/objectstream/server/internal/metrics"
	"github.com/objectstream/objectstream/server/internal/store"
	"github.com/objectstream/objectstream/server/internal/telemetry"
	"github.com/objectstream/objectstream/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// options holds the command-line flags.
type options struct {
	configPath string
	host       string
	port       int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("objectstream-server failed", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "objectstream-server",
		Short:         "Serve the object API and the random-value stream",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, opts.configPath)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config file; empty uses defaults")
	cmd.Flags().StringVar(&opts.host, "host", "", "bind address (overrides server.host)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (overrides server.http_port)")

	return cmd
}

// loadConfig reads the config file and applies flags the user actually set.
func loadConfig(opts *options, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.HTTPPort = opts.port
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, configPath string) error {
	level := new(slog.LevelVar)
	level.Set(cfg.Server.Level())
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("objectstream-server starting",
		"config", configPath,
		"addr", cfg.Server.Addr(),
		"auth_mode", cfg.Server.Auth.Mode,
		"cors", cfg.Server.CORS.Enabled,
	)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				level.Set(next.Server.Level())
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Server.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("telemetry shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	validator, err := auth.FromConfig(cfg.Server.Auth)
	if err != nil {
		return err
	}

	var hubOpts []ws.Option
	if check := app.OriginCheck(cfg.Server.CORS); check != nil {
		hubOpts = append(hubOpts, ws.WithOriginCheck(check))
	}
	hub := ws.New(cfg.Server.Stream, m, hubOpts...)
	go hub.Run(ctx)

	handler := app.NewHandler(cfg.Server, app.Deps{
		Store:     store.New(),
		Hub:       hub,
		Validator: validator,
		Metrics:   m,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("objectstream-server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(sctx)
}
