// Package pipeline turns the transaction, user and product tables into the
// aggregates behind the dashboard. Stages run in a fixed order (load,
// normalize, aggregate, trend) and never modify their inputs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecommerce-dashboard/internal/models"
)

const (
	tracerName         = "ecommerce-dashboard/pipeline"
	DefaultAgeBinWidth = 5
)

type Options struct {
	Window      MonthWindow
	Policy      MonthPolicy
	AgeBinWidth int
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Window) == 0 {
		o.Window = DefaultMonthWindow
	}
	if o.Policy == "" {
		o.Policy = MonthPolicyReject
	}
	if o.AgeBinWidth == 0 {
		o.AgeBinWidth = DefaultAgeBinWidth
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Snapshot is the complete result of one pipeline run.
type Snapshot struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Window      MonthWindow `json:"-"`

	KPI                 models.KPI                   `json:"kpi"`
	ProductSales        SalesSummaries               `json:"product_sales"`
	SalesMarkers        []models.ProductSalesMarker  `json:"sales_markers"`
	MonthlyProductSales []models.MonthlyProductSales `json:"monthly_product_sales"`
	MonthlyTotals       []models.MonthlyTotal        `json:"monthly_totals"`
	ProductTrends       []models.TrendSeries         `json:"product_trends"`
	TotalTrend          models.TrendSeries           `json:"total_trend"`
	AgeHistogram        []models.AgeBucket           `json:"age_histogram"`
	Drops               models.DropReport            `json:"drops"`

	joined     []models.TransactionWithUser
	productIDs []string
}

// TierDistribution counts transactions per customer tier, optionally for a
// single product.
func (s *Snapshot) TierDistribution(productID string) models.TierDistribution {
	return TierDistribution(s.joined, productID)
}

// ProductIDs lists catalog products in display order.
func (s *Snapshot) ProductIDs() []string {
	return s.productIDs
}

// Run loads the sources and builds a snapshot.
func Run(ctx context.Context, src Sources, opts Options) (*Snapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.load")
	raw, err := LoadSources(ctx, src)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageLoad, err)
	}
	return Build(ctx, raw, opts)
}

// Build runs every stage after loading.
func Build(ctx context.Context, raw *RawTables, opts Options) (*Snapshot, error) {
	opts = opts.withDefaults()
	tracer := otel.Tracer(tracerName)
	drops := make(models.DropReport)

	_, span := tracer.Start(ctx, "pipeline.normalize")
	tables, err := Normalize(raw, drops)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageNormalize, err)
	}

	_, span = tracer.Start(ctx, "pipeline.aggregate")
	snap, err := aggregate(tables, opts, drops)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageAggregate, err)
	}

	_, span = tracer.Start(ctx, "pipeline.trend")
	err = fitTrends(snap, opts.Window)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageTrend, err)
	}

	opts.Logger.Info("pipeline run complete",
		"run_id", snap.RunID,
		"transactions", len(tables.Transactions),
		"users", len(tables.Users),
		"products", len(tables.Products),
		"dropped_rows", drops.Total(),
	)
	for source, reasons := range drops {
		for reason, n := range reasons {
			opts.Logger.Warn("rows dropped", "run_id", snap.RunID, "source", source, "reason", reason, "count", n)
		}
	}
	return snap, nil
}

func aggregate(tables *Tables, opts Options, drops models.DropReport) (*Snapshot, error) {
	txs, excluded, err := ApplyMonthWindow(tables.Transactions, opts.Window, opts.Policy)
	if err != nil {
		return nil, err
	}
	drops.Add(SourceTransactions, reasonOutsideWindow, excluded)

	merged, err := MergeWithProducts(TotalQuantityByProduct(txs), tables.Products)
	if err != nil {
		return nil, err
	}
	summaries := StockStatus(merged)

	monthly, err := MonthlyQuantityByProductAndMonth(txs, opts.Window)
	if err != nil {
		return nil, err
	}
	totals, err := MonthlyQuantityTotal(txs, opts.Window)
	if err != nil {
		return nil, err
	}
	ages, err := AgeHistogram(tables.Users, opts.AgeBinWidth)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ProductID
	}

	return &Snapshot{
		RunID:               uuid.NewString(),
		GeneratedAt:         time.Now().UTC(),
		Window:              opts.Window,
		KPI:                 ComputeKPI(tables.Users, txs, summaries),
		ProductSales:        summaries,
		SalesMarkers:        ExtremeSalesMarkers(summaries),
		MonthlyProductSales: monthly,
		MonthlyTotals:       totals,
		AgeHistogram:        ages,
		Drops:               drops,
		joined:              JoinTransactionsWithUsers(txs, tables.Users),
		productIDs:          ids,
	}, nil
}

func fitTrends(snap *Snapshot, window MonthWindow) error {
	for _, series := range ProductMonthSeries(snap.MonthlyProductSales, window) {
		trend, err := BuildTrend("product "+series.ProductID, window, series.Values)
		if err != nil {
			return err
		}
		trend.ProductID = series.ProductID
		snap.ProductTrends = append(snap.ProductTrends, trend)
	}

	values := make([]float64, len(snap.MonthlyTotals))
	for i, t := range snap.MonthlyTotals {
		values[i] = float64(t.Quantity)
	}
	trend, err := BuildTrend("all products", window, values)
	if err != nil {
		return err
	}
	snap.TotalTrend = trend
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
