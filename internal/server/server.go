package server

import (
	"log/slog"
	"net/http"

	"ecommerce-dashboard/internal/handlers"
)

type Server struct {
	dashboard      handlers.SnapshotProvider
	mux            *http.ServeMux
	logger         *slog.Logger
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	exportHandlers *handlers.ExportHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewServer(dashboard handlers.SnapshotProvider, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		dashboard:      dashboard,
		mux:            http.NewServeMux(),
		logger:         logger,
		apiHandlers:    handlers.NewAPIHandlers(dashboard, logger),
		sseHandlers:    handlers.NewSSEHandlers(dashboard, logger),
		exportHandlers: handlers.NewExportHandlers(dashboard, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if templateHandlers.Metrics != nil {
		s.mux.Handle("GET /metrics", templateHandlers.Metrics)
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/kpi", s.apiHandlers.HandleKPI)
	s.mux.HandleFunc("GET /api/product-sales", s.apiHandlers.HandleProductSales)
	s.mux.HandleFunc("GET /api/monthly-product-sales", s.apiHandlers.HandleMonthlyProductSales)
	s.mux.HandleFunc("GET /api/monthly-totals", s.apiHandlers.HandleMonthlyTotals)
	s.mux.HandleFunc("GET /api/trends", s.apiHandlers.HandleTrends)
	s.mux.HandleFunc("GET /api/age-histogram", s.apiHandlers.HandleAgeHistogram)
	s.mux.HandleFunc("GET /api/tier-distribution", s.apiHandlers.HandleTierDistribution)
	s.mux.HandleFunc("GET /api/drop-report", s.apiHandlers.HandleDropReport)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/kpi", s.sseHandlers.HandleKPI)
	s.mux.HandleFunc("GET /sse/monthly", s.sseHandlers.HandleMonthly)
	s.mux.HandleFunc("GET /sse/stock", s.sseHandlers.HandleStock)
	s.mux.HandleFunc("GET /sse/customers", s.sseHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /sse/tier-distribution", s.sseHandlers.HandleTierDistribution)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)

	// Downloads
	s.mux.HandleFunc("GET /export/summary.xlsx", s.exportHandlers.HandleSummaryXLSX)
	s.mux.HandleFunc("GET /charts/monthly-trend.png", s.exportHandlers.HandleMonthlyTrendChart)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
