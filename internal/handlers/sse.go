package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/pipeline"
	"ecommerce-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard SnapshotProvider
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard SnapshotProvider, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

const datastarQueryKey = "datastar"

// panelSignals is the datastar signal state sent from the page.
type panelSignals struct {
	Product string `json:"product"`
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	err := c.Render(ctx, &sb)
	return sb.String(), err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// patch renders a fragment and sends it, optionally followed by signals.
func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component, signals map[string]any) bool {
	html, err := renderHTML(ctx, c)
	if err != nil {
		h.logger.Error("render fragment", "error", err)
		return false
	}
	sse.PatchElements(html)

	if signals == nil {
		return true
	}
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return false
	}
	sse.PatchSignals(jsonData)
	return true
}

// snapshot loads the current snapshot or patches a diagnostic into the page.
func (h *SSEHandlers) snapshot(ctx context.Context, sse *datastar.ServerSentEventGenerator, refresh bool) (*pipeline.Snapshot, bool) {
	load := h.dashboard.Snapshot
	if refresh {
		load = h.dashboard.Refresh
	}
	snap, err := load(ctx)
	if err != nil {
		h.sendError(ctx, sse, errors.FromPipeline(err))
		return nil, false
	}
	// Clear any diagnostic left by an earlier failed run.
	h.patch(ctx, sse, templates.ClearError(), nil)
	return snap, true
}

func (h *SSEHandlers) sendError(ctx context.Context, sse *datastar.ServerSentEventGenerator, appErr *errors.AppError) {
	h.logger.Warn("dashboard panel failed",
		"error_code", appErr.Code,
		"stage", appErr.Stage,
		"record", appErr.Record,
		"cause", appErr.Cause,
	)
	h.patch(ctx, sse, templates.PipelineError(templates.ErrorData{
		Message: appErr.Message,
		Stage:   appErr.Stage,
		Record:  appErr.Record,
		Details: appErr.Details,
	}), nil)
}

func (h *SSEHandlers) HandleKPI(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	snap, ok := h.snapshot(ctx, sse, false)
	if ok {
		h.sendKPI(ctx, sse, snap)
	}

	flush(w)
}

func (h *SSEHandlers) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	snap, ok := h.snapshot(ctx, sse, false)
	if ok {
		h.sendMonthly(ctx, sse, snap)
	}

	flush(w)
}

func (h *SSEHandlers) HandleStock(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	snap, ok := h.snapshot(ctx, sse, false)
	if ok {
		h.sendStock(ctx, sse, snap)
	}

	flush(w)
}

func (h *SSEHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	snap, ok := h.snapshot(ctx, sse, false)
	if ok {
		h.sendCustomers(ctx, sse, snap)
	}

	flush(w)
}

func (h *SSEHandlers) HandleTierDistribution(w http.ResponseWriter, r *http.Request) {
	selector, err := productSelector(r)
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	defer flush(w)

	if err != nil {
		h.sendError(ctx, sse, errors.BadRequestWrap(err, "Invalid datastar signals"))
		return
	}

	snap, ok := h.snapshot(ctx, sse, false)
	if !ok {
		return
	}
	product, err := resolveProduct(snap, selector)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			h.sendError(ctx, sse, appErr)
		}
		return
	}
	h.sendTier(ctx, sse, snap, product)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	defer flush(w)

	snap, ok := h.snapshot(ctx, sse, true)
	if !ok {
		return
	}

	h.sendKPI(ctx, sse, snap)
	h.sendMonthly(ctx, sse, snap)
	h.sendStock(ctx, sse, snap)
	h.sendCustomers(ctx, sse, snap)
	h.sendTier(ctx, sse, snap, "")
}

func (h *SSEHandlers) sendKPI(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap *pipeline.Snapshot) {
	h.patch(ctx, sse, templates.KPICards(snap.KPI), map[string]any{
		"kpi": snap.KPI,
	})
}

func (h *SSEHandlers) sendMonthly(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap *pipeline.Snapshot) {
	h.patch(ctx, sse, templates.MonthlyTable(snap.MonthlyTotals, snap.TotalTrend, snap.ProductTrends), map[string]any{
		"monthlyTotals": snap.MonthlyTotals,
		"totalTrend":    snap.TotalTrend,
		"productTrends": snap.ProductTrends,
	})
}

func (h *SSEHandlers) sendStock(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap *pipeline.Snapshot) {
	h.patch(ctx, sse, templates.StockTable(snap.ProductSales, snap.SalesMarkers), map[string]any{
		"productSales": snap.ProductSales,
	})
}

func (h *SSEHandlers) sendCustomers(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap *pipeline.Snapshot) {
	h.patch(ctx, sse, templates.AgeHistogram(snap.AgeHistogram), map[string]any{
		"ageHistogram": snap.AgeHistogram,
	})
}

func (h *SSEHandlers) sendTier(ctx context.Context, sse *datastar.ServerSentEventGenerator, snap *pipeline.Snapshot, product string) {
	dist := snap.TierDistribution(product)
	h.patch(ctx, sse, templates.TierPanel(dist), map[string]any{
		"tierDistribution": dist,
	})
}

// productSelector reads the product from datastar signals when the page sent
// them, falling back to the plain query parameter.
func productSelector(r *http.Request) (string, error) {
	if !r.URL.Query().Has(datastarQueryKey) {
		return r.URL.Query().Get("product"), nil
	}
	var signals panelSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return "", err
	}
	return signals.Product, nil
}
