package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/export"
	"ecommerce-dashboard/internal/observability"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandlers struct {
	dashboard SnapshotProvider
	logger    *slog.Logger
}

func NewExportHandlers(dashboard SnapshotProvider, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// Artifacts are rendered into a buffer first so a failure can still be
// reported as a JSON error.
func (h *ExportHandlers) HandleSummaryXLSX(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	snap, err := h.dashboard.Snapshot(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), requestID)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSummaryXLSX(&buf, snap); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to build workbook"), requestID)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dashboard-%s.xlsx"`, snap.GeneratedAt.Format("20060102-150405")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write workbook", "error", err, "request_id", requestID)
	}
}

func (h *ExportHandlers) HandleMonthlyTrendChart(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	snap, err := h.dashboard.Snapshot(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.FromPipeline(err), requestID)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMonthlyTrendPNG(&buf, snap.MonthlyTotals, snap.TotalTrend); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to render chart"), requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheMaxAge)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write chart", "error", err, "request_id", requestID)
	}
}
