// Command contigalias serves the assembly alias HTTP API backed by a
// persistent assembly store and the ENA report enrichment pipeline.
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

	"contigalias/internal/api"
	"contigalias/internal/blob"
	"contigalias/internal/core"
	"contigalias/internal/ena"
	"contigalias/internal/infra/persistence/memory"
	"contigalias/internal/infra/persistence/postgres"
	"contigalias/internal/infra/persistence/sqlite"
	"contigalias/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("contigalias exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	registry := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	datasource, err := openDataSource(ctx, logger, recorder)
	if err != nil {
		return err
	}

	service := core.NewService(store, datasource, core.WithMetrics(recorder))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", api.NewHandler(service))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := envOr("CONTIGALIAS_LISTEN_ADDR", ":8080")
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() {
		logger.Info("contigalias listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// openStore selects the persistence backend.
//
//	CONTIGALIAS_DB_DRIVER: memory|sqlite|postgres (default sqlite)
//	CONTIGALIAS_SQLITE_PATH: database file when driver=sqlite
//	CONTIGALIAS_POSTGRES_DSN: DSN when driver=postgres
func openStore() (domain.PersistentStore, error) {
	driver := envOr("CONTIGALIAS_DB_DRIVER", "sqlite")
	switch driver {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.NewStore(os.Getenv("CONTIGALIAS_SQLITE_PATH"))
	case "postgres":
		return postgres.NewStore(os.Getenv("CONTIGALIAS_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown db driver %s", driver)
	}
}

func openDataSource(ctx context.Context, logger *slog.Logger, recorder core.MetricsRecorder) (*ena.DataSource, error) {
	host := envOr("CONTIGALIAS_FTP_HOST", ena.DefaultFTPHost)
	downloadDir := envOr("CONTIGALIAS_DOWNLOAD_DIR", os.TempDir())
	factory := ena.SessionFactoryFunc(func() ena.Session {
		return ena.NewFTPSession(host, 30*time.Second)
	})

	opts := []ena.Option{ena.WithMetrics(recorder)}
	if os.Getenv("CONTIGALIAS_BLOB_DRIVER") != "" {
		cache, err := blob.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open report cache: %w", err)
		}
		opts = append(opts, ena.WithCache(cache))
	}

	cfg := ena.Config{DownloadDir: downloadDir, Retry: ena.DefaultRetryPolicy()}
	return ena.NewDataSource(factory, ena.NewSequenceReportParser(), cfg, logger, opts...), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
