package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seluk/margo/internal/adapters/http/api"
	"github.com/seluk/margo/internal/adapters/http/contract"
	app "github.com/seluk/margo/internal/app"
	"github.com/seluk/margo/internal/config"
	"github.com/seluk/margo/pkg/logger"
	"github.com/seluk/margo/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout          = 10 * time.Second
	writeTimeout         = 10 * time.Second
	idleTimeout          = 60 * time.Second
	readHeaderTimeout    = 5 * time.Second
	shutdownTimeout      = 30 * time.Second
	statsRefreshInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since the logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Initialize logging at the configured level (fallback to info on invalid input)
	if err := logger.Init(cfg.LogLevel); err != nil {
		_ = logger.Init("info")
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	tasks, err := cfg.TaskList()
	if err != nil {
		os.Stderr.WriteString("invalid task list: " + err.Error() + "\n")
		return
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance.Named("service")),
		app.WithDocumentPath(cfg.DocumentPath),
		app.WithTasks(tasks),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDwellTick(time.Duration(cfg.DwellTickMs)*time.Millisecond),
		app.WithMaxEvidenceLimit(cfg.MaxEvidenceLimit),
		app.WithThresholds(cfg.SkimThresholds()),
		app.WithSwitches(cfg.Switches()),
		app.WithArchivePath(cfg.ArchivePath),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Background samplers for the runtime and roster gauges.
	metrics.StartSystemRefresher(ctx)
	go startStatsRefresher(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Serve the machine-readable API contract.
	contract.Register(mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			// Unblock main so the service still shuts down cleanly.
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startStatsRefresher pulls service stats on a fixed cadence so the roster
// gauges stay fresh between scrapes even when no /stats requests arrive.
func startStatsRefresher(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(statsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
