// Command visord serves the visual search query API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/visor"
	"github.com/hupe1980/visor/backend"
	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/config"
	"github.com/hupe1980/visor/internal/server"
	"github.com/hupe1980/visor/metrics/prom"
	"github.com/hupe1980/visor/resource"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default $"+config.EnvPath+")")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "visord: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger.Logger)
	logger.Info("starting visord", "version", Version, "listen", cfg.Listen, "engines", len(cfg.Engines))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:      cfg.Cache.MemoryLimitBytes,
		MaxExecutions:         cfg.MaxExecutions,
		BackendRequestsPerSec: cfg.BackendRate,
		BackendBurst:          cfg.BackendBurst,
	})

	promReg := prometheus.NewRegistry()
	collector, err := prom.NewCollector(promReg, prom.DefaultNamespace)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	reg := cfg.Registry()
	checkBackends(ctx, logger, cfg)

	opts := []visor.Option{
		visor.WithLogger(logger),
		visor.WithMetricsCollector(collector),
		visor.WithPollInterval(cfg.PollInterval),
		visor.WithMaxWait(cfg.MaxWait),
		visor.WithPageSize(cfg.ResultsPerPage),
		visor.WithPageWindow(cfg.PageWindow),
		visor.WithWorkers(cfg.Workers, cfg.QueueSize),
		visor.WithExecutionTimeout(cfg.ExecutionTimeout),
		visor.WithResourceController(rc),
		visor.WithROIClients(backend.Sessions()),
		visor.WithCacheOptions(
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithResultReuse(!cfg.Cache.Disabled),
		),
	}

	if !cfg.Cache.Disabled {
		arc, err := openArchive(ctx, cfg.Archive, rc, logger.Logger)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		if arc != nil {
			opts = append(opts, visor.WithArchive(arc))
		}
	}

	runner := backend.NewRunner(backend.Sessions(),
		backend.WithResourceController(rc),
		backend.WithLogger(logger.Logger),
	)

	svc, err := visor.New(runner, reg, opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	handler := server.NewHandler(svc, server.WithTitle(cfg.Title), server.WithLogger(logger.Logger))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Waiting requests hold the connection until the query finishes.
		WriteTimeout: cfg.MaxWait + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(c config.Log) *visor.Logger {
	level := parseLogLevel(c.Level)
	if c.Format == "json" {
		return visor.NewJSONLogger(level)
	}
	return visor.NewTextLogger(level)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// checkBackends logs engines whose backend does not accept connections.
// Unreachable backends are not fatal; they may come up later.
func checkBackends(ctx context.Context, logger *visor.Logger, cfg *config.Config) {
	var d net.Dialer
	for name, e := range cfg.Engines {
		addr := e.Addr()
		if addr == "" {
			logger.Warn("engine has no backend address", "engine", name)
			continue
		}
		dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		conn, err := d.DialContext(dctx, "tcp", addr)
		cancel()
		if err != nil {
			logger.Warn("backend unreachable", "engine", name, "addr", addr, "error", err)
			continue
		}
		_ = conn.Close()
	}
}
