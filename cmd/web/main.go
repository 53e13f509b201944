package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/pipeline"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	warmupTimeout   = 30 * time.Second
	pageCacheMaxAge = "no-cache"
)

// dashboardPage renders the page shell. The product selector is filled from
// the current snapshot; when the pipeline fails the page still renders and
// the panels report the diagnostic.
func dashboardPage(dashboard handlers.SnapshotProvider, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		var productIDs []string
		if snap, err := dashboard.Snapshot(ctx); err == nil {
			productIDs = snap.ProductIDs()
		} else {
			logger.Warn("rendering dashboard without products", "error", err)
		}

		w.Header().Set("Cache-Control", pageCacheMaxAge)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(productIDs).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func pipelineOptions(cfg config.DataConfig) (pipeline.Sources, pipeline.Options, error) {
	window, err := pipeline.ParseMonthWindow(cfg.MonthWindow)
	if err != nil {
		return pipeline.Sources{}, pipeline.Options{}, err
	}
	sources := pipeline.Sources{
		Transactions: cfg.TransactionsFile,
		Users:        cfg.UsersFile,
		Products:     cfg.ProductsFile,
	}
	opts := pipeline.Options{
		Window:      window,
		Policy:      pipeline.MonthPolicy(cfg.MonthPolicy),
		AgeBinWidth: cfg.AgeBinWidth,
	}
	return sources, opts, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Observability, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	sources, opts, err := pipelineOptions(cfg.Data)
	if err != nil {
		logger.Error("invalid data configuration", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	dashboard := services.NewDashboard(sources, opts, logger, metrics)

	// Fail fast on bad input files rather than on the first page load.
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	start := time.Now()
	_, err = dashboard.Snapshot(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to build initial snapshot", "error", err)
		os.Exit(1)
	}
	logger.Info("source data loaded successfully", "duration", time.Since(start))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(dashboard, logger),
	}
	if cfg.Observability.MetricsEnabled {
		templateHandlers.Metrics = metrics.Handler()
	}

	srv := server.NewServer(dashboard, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	chain := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	}
	// Innermost, so the matched route pattern is visible after serving.
	if cfg.Observability.MetricsEnabled {
		chain = append(chain, middleware.Metrics(metrics))
	}

	handler := middleware.Chain(chain...)(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("tracing", func(ctx context.Context) error {
		logger.Info("flushing traces")
		return shutdownTracing(ctx)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
