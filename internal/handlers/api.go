package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/pipeline"
)

const cacheMaxAge = "public, max-age=60"

// SnapshotProvider is satisfied by services.Dashboard.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*pipeline.Snapshot, error)
	Refresh(ctx context.Context) (*pipeline.Snapshot, error)
	Stats() map[string]any
}

type APIHandlers struct {
	dashboard SnapshotProvider
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard SnapshotProvider, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) snapshot(w http.ResponseWriter, r *http.Request) (*pipeline.Snapshot, bool) {
	snap, err := h.dashboard.Snapshot(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), observability.GetRequestID(r.Context()))
		return nil, false
	}
	return snap, true
}

func (h *APIHandlers) write(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

func (h *APIHandlers) HandleKPI(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, snap.KPI)
}

type productSalesResponse struct {
	Products []models.ProductSalesSummary `json:"products"`
	Markers  []models.ProductSalesMarker  `json:"markers"`
}

func (h *APIHandlers) HandleProductSales(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, productSalesResponse{Products: snap.ProductSales, Markers: snap.SalesMarkers})
}

func (h *APIHandlers) HandleMonthlyProductSales(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, snap.MonthlyProductSales)
}

func (h *APIHandlers) HandleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, snap.MonthlyTotals)
}

type trendsResponse struct {
	Total    models.TrendSeries   `json:"total"`
	Products []models.TrendSeries `json:"products"`
}

func (h *APIHandlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, trendsResponse{Total: snap.TotalTrend, Products: snap.ProductTrends})
}

func (h *APIHandlers) HandleAgeHistogram(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, snap.AgeHistogram)
}

func (h *APIHandlers) HandleTierDistribution(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	product, err := resolveProduct(snap, r.URL.Query().Get("product"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	h.write(w, snap.TierDistribution(product))
}

type dropReportResponse struct {
	Total   int               `json:"total"`
	Sources models.DropReport `json:"sources"`
}

func (h *APIHandlers) HandleDropReport(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.write(w, dropReportResponse{Total: snap.Drops.Total(), Sources: snap.Drops})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}

// resolveProduct maps a product selector to a catalog ID. Empty and "all"
// select every product.
func resolveProduct(snap *pipeline.Snapshot, selector string) (string, error) {
	selector = strings.ToUpper(strings.TrimSpace(selector))
	if selector == "" || selector == "ALL" {
		return "", nil
	}
	if !slices.Contains(snap.ProductIDs(), selector) {
		return "", errors.NotFound("unknown product " + selector)
	}
	return selector, nil
}
