package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okhani/dav/internal/adapters/http/dav"
	"github.com/okhani/dav/internal/adapters/http/mgmt"
	app "github.com/okhani/dav/internal/app"
	"github.com/okhani/dav/internal/config"
	"github.com/okhani/dav/pkg/logger"
	"github.com/okhani/dav/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Minute
	writeTimeout              = 10 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Initialize logging, mirroring to a rotating file when configured
	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithRotatingFile(cfg.LogFile))
	}
	if err := logger.Init(logOpts...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Pick up log level changes when the config file is rewritten.
	if err := config.Watch(ctx, func(updated *config.Config) {
		if err := logger.SetLevelString(updated.LogLevel); err == nil {
			loggerInstance.Info(ctx, "log level updated", logger.String("log_level", updated.LogLevel))
		}
	}); err != nil {
		loggerInstance.Warn(ctx, "config watch unavailable", logger.Error(err))
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithOSRoot(pickRoot(cfg)),
		app.WithHideSymlinks(cfg.HideSymlinks),
		app.WithLocksEnabled(cfg.LocksEnabled),
		app.WithMaxLockTimeout(time.Duration(cfg.MaxLockTimeoutS)*time.Second),
		app.WithJournalSize(cfg.JournalSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithRecentChanges(cfg.RecentChanges),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register health, stats, and status pages.
	mgmtServer := mgmt.NewServer(svc)
	mgmtServer.Register(ctx, mux)

	// Mount the DAV tree at the configured prefix.
	handler := dav.NewHandler(svc.FS(),
		dav.WithPrefix(cfg.Prefix),
		dav.WithLockSystem(svc.Locks()),
		dav.WithInfiniteDepth(cfg.AllowInfiniteDepth),
		dav.WithJournal(svc),
		dav.WithLogger(loggerInstance.Named("dav")),
	)

	var davHandler http.Handler = handler
	if cfg.AuthUsername != "" && cfg.AuthPassword != "" {
		davHandler = basicAuth(davHandler, cfg.AuthUsername, cfg.AuthPassword, cfg.AuthRealm)
	}

	if cfg.Prefix == "" {
		mux.Handle("/", davHandler)
	} else {
		mux.Handle(cfg.Prefix+"/", davHandler)
		mux.Handle(cfg.Prefix, davHandler)
	}

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
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("prefix", cfg.Prefix),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
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

// pickRoot returns the served directory, or empty for the memory backend.
func pickRoot(cfg *config.Config) string {
	if cfg.Backend == "os" {
		return cfg.Root
	}
	return ""
}

// basicAuth guards the DAV tree with HTTP basic auth and stamps the
// authenticated user as the principal for lock ownership and journaling.
func basicAuth(next http.Handler, username, password, realm string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(dav.ContextWithPrincipal(r.Context(), user)))
	})
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if depth, ok := stats["journalDepth"].(int); ok {
		metrics.UpdateJournalDepth(depth)
	}
	if nodes, ok := stats["fsNodes"].(int); ok {
		metrics.UpdateFSNodes(nodes)
	}
	if bytes, ok := stats["fsBytes"].(int64); ok {
		metrics.UpdateFSBytes(bytes)
	}
}
