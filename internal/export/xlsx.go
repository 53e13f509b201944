// Package export renders a snapshot into downloadable artifacts: an XLSX
// workbook and a PNG chart of the monthly trend.
package export

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/xuri/excelize/v2"

	"ecommerce-dashboard/internal/pipeline"
)

const (
	SheetSummary      = "Summary"
	SheetProductSales = "Product Sales"
	SheetMonthly      = "Monthly"
	SheetTiers        = "Customer Tiers"
	SheetAges         = "Ages"
	SheetDrops        = "Dropped Rows"
)

type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

// row writes values starting at column A of the given 1-based row. The first
// error sticks and later calls are no-ops.
func (s *sheetWriter) row(sheet string, row int, values ...any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(sheet, cell, &values)
}

func (s *sheetWriter) header(sheet string, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	s.row(sheet, 1, values...)
	if s.err != nil {
		return
	}

	last, err := excelize.ColumnNumberToName(len(titles))
	if err != nil {
		s.err = err
		return
	}
	if s.err = s.f.SetCellStyle(sheet, "A1", last+"1", s.bold); s.err != nil {
		return
	}
	s.err = s.f.SetColWidth(sheet, "A", last, 18)
}

func (s *sheetWriter) sheet(name string) {
	if s.err != nil {
		return
	}
	_, s.err = s.f.NewSheet(name)
}

// WriteSummaryXLSX writes every derived table of snap to w as one workbook.
func WriteSummaryXLSX(w io.Writer, snap *pipeline.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	s := &sheetWriter{f: f, bold: bold}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	s.header(SheetSummary, "Metric", "Value")
	kpi := snap.KPI
	s.row(SheetSummary, 2, "Run ID", snap.RunID)
	s.row(SheetSummary, 3, "Generated at", snap.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	s.row(SheetSummary, 4, "Total customers", kpi.TotalCustomers)
	s.row(SheetSummary, 5, "Total units sold", kpi.TotalUnitsSold)
	s.row(SheetSummary, 6, "Total sales", kpi.TotalSales.InexactFloat64())
	s.row(SheetSummary, 7, "Total sales (formatted)", kpi.TotalSalesFormatted)
	s.row(SheetSummary, 8, "Basic customers", kpi.BasicCustomers)
	s.row(SheetSummary, 9, "Premium customers", kpi.PremiumCustomers)

	s.sheet(SheetProductSales)
	s.header(SheetProductSales, "Product_ID", "Quantity", "HARGA_SATUAN", "Total_Sales",
		"JUMLAH_DIGUDANG", "Sisa", "Restock threshold", "Status", "Marker")
	markers := make(map[string]string, len(snap.SalesMarkers))
	for _, m := range snap.SalesMarkers {
		markers[m.ProductID] = string(m.Marker)
	}
	for i, p := range snap.ProductSales {
		s.row(SheetProductSales, i+2, p.ProductID, p.Quantity, p.UnitPrice.InexactFloat64(),
			p.TotalSales.InexactFloat64(), p.WarehouseQty, p.Sisa, p.RestockThreshold,
			string(p.Status), markers[p.ProductID])
	}

	s.sheet(SheetMonthly)
	months := snap.TotalTrend.Months
	titles := append([]string{"Series"}, months...)
	s.header(SheetMonthly, titles...)
	row := 2
	s.row(SheetMonthly, row, seriesRow("All products", snap.TotalTrend.Actual)...)
	row++
	s.row(SheetMonthly, row, seriesRow("All products (trend)", snap.TotalTrend.Fitted)...)
	for _, t := range snap.ProductTrends {
		row++
		s.row(SheetMonthly, row, seriesRow(t.ProductID, t.Actual)...)
		row++
		s.row(SheetMonthly, row, seriesRow(t.ProductID+" (trend)", t.Fitted)...)
	}

	s.sheet(SheetTiers)
	s.header(SheetTiers, "Product", "Premium", "Basic", "Unmatched", "Total")
	products := append([]string{""}, snap.ProductIDs()...)
	for i, id := range products {
		d := snap.TierDistribution(id)
		label := id
		if label == "" {
			label = "All products"
		}
		s.row(SheetTiers, i+2, label, d.Premium, d.Basic, d.Unmatched, d.Total())
	}

	s.sheet(SheetAges)
	s.header(SheetAges, "Age from", "Age to (exclusive)", "Customers")
	for i, b := range snap.AgeHistogram {
		s.row(SheetAges, i+2, b.Lower, b.Upper, b.Count)
	}

	s.sheet(SheetDrops)
	s.header(SheetDrops, "Source", "Reason", "Rows")
	row = 2
	for _, source := range slices.Sorted(maps.Keys(snap.Drops)) {
		reasons := snap.Drops[source]
		for _, reason := range slices.Sorted(maps.Keys(reasons)) {
			s.row(SheetDrops, row, source, reason, reasons[reason])
			row++
		}
	}

	if s.err != nil {
		return fmt.Errorf("build workbook: %w", s.err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func seriesRow(label string, values []float64) []any {
	out := make([]any, 0, len(values)+1)
	out = append(out, label)
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
