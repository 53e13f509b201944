package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"ecommerce-dashboard/internal/pipeline"
)

type stubDashboard struct {
	snap      *pipeline.Snapshot
	err       error
	refreshes int
}

func (s *stubDashboard) Snapshot(context.Context) (*pipeline.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubDashboard) Refresh(context.Context) (*pipeline.Snapshot, error) {
	s.refreshes++
	return s.snap, s.err
}

func (s *stubDashboard) Stats() map[string]any {
	return map[string]any{"runs": int64(1), "month_policy": "reject"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// createTestSnapshot runs the pipeline over a small in-memory data set:
// A sells 8 units (5 Jan, 3 Feb), B sells 6 (4 Mar, 2 Apr) and one B sale
// belongs to a user missing from the user table.
func createTestSnapshot(t *testing.T) *pipeline.Snapshot {
	t.Helper()
	raw := &pipeline.RawTables{
		Transactions: []pipeline.RawTransaction{
			{Row: 1, ProductID: "A", UserID: "U1", Quantity: "5", Date: "1/1/2023"},
			{Row: 2, ProductID: "A", UserID: "U2", Quantity: "3", Date: "2/2/2023"},
			{Row: 3, ProductID: "B", UserID: "U2", Quantity: "4", Date: "3/3/2023"},
			{Row: 4, ProductID: "B", UserID: "U9", Quantity: "2", Date: "4/4/2023"},
		},
		Users: []pipeline.RawUser{
			{Row: 1, UserID: "U1", Age: "25", Status: "premium"},
			{Row: 2, UserID: "U2", Age: "31", Status: "Basic"},
		},
		Products: []pipeline.RawProduct{
			{Row: 1, ProductID: "a", UnitPrice: "1000", WarehouseQty: "100", RestockThreshold: "80"},
			{Row: 2, ProductID: "b", UnitPrice: "2500", WarehouseQty: "40", RestockThreshold: "10"},
		},
	}
	snap, err := pipeline.Build(context.Background(), raw, pipeline.Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return snap
}

func failingDashboard() *stubDashboard {
	return &stubDashboard{err: &pipeline.MissingProductReferenceError{ProductIDs: []string{"Z"}}}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, data any) {
	t.Helper()
	var response struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Fatal("expected success=true in response")
	}
	if err := json.Unmarshal(response.Data, data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func TestNewAPIHandlers(t *testing.T) {
	dashboard := &stubDashboard{}
	logger := testLogger()
	handlers := NewAPIHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.dashboard != dashboard {
		t.Error("NewAPIHandlers() should set dashboard field")
	}
	if handlers.logger != logger {
		t.Error("NewAPIHandlers() should set logger field")
	}
}

func TestAPIHandlers_HandleKPI(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/kpi", nil)
	w := httptest.NewRecorder()
	handlers.HandleKPI(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var kpi struct {
		TotalCustomers      int    `json:"total_customers"`
		TotalUnitsSold      int    `json:"total_units_sold"`
		TotalSalesFormatted string `json:"total_sales_formatted"`
		BasicCustomers      int    `json:"basic_customers"`
		PremiumCustomers    int    `json:"premium_customers"`
	}
	decodeData(t, w, &kpi)

	if kpi.TotalCustomers != 2 {
		t.Errorf("expected 2 customers, got %d", kpi.TotalCustomers)
	}
	if kpi.TotalUnitsSold != 14 {
		t.Errorf("expected 14 units sold, got %d", kpi.TotalUnitsSold)
	}
	if kpi.TotalSalesFormatted != "Rp23,000" {
		t.Errorf("expected total sales Rp23,000, got %q", kpi.TotalSalesFormatted)
	}
	if kpi.BasicCustomers != 1 || kpi.PremiumCustomers != 1 {
		t.Errorf("expected 1 basic and 1 premium, got %d and %d", kpi.BasicCustomers, kpi.PremiumCustomers)
	}
}

func TestAPIHandlers_HandleProductSales(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/product-sales", nil)
	w := httptest.NewRecorder()
	handlers.HandleProductSales(w, req)

	var body struct {
		Products []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
			Sisa      int    `json:"sisa"`
			Status    string `json:"status"`
		} `json:"products"`
		Markers []struct {
			ProductID string `json:"product_id"`
			Marker    string `json:"marker"`
		} `json:"markers"`
	}
	decodeData(t, w, &body)

	if len(body.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(body.Products))
	}
	if body.Products[0].ProductID != "A" || body.Products[0].Quantity != 8 || body.Products[0].Sisa != 92 {
		t.Errorf("unexpected row for A: %+v", body.Products[0])
	}
	if body.Products[1].ProductID != "B" || body.Products[1].Quantity != 6 {
		t.Errorf("unexpected row for B: %+v", body.Products[1])
	}

	markers := map[string]string{}
	for _, m := range body.Markers {
		markers[m.ProductID] = m.Marker
	}
	if markers["A"] != "min" || markers["B"] != "max" {
		t.Errorf("expected A=min and B=max, got %v", markers)
	}
}

func TestAPIHandlers_HandleMonthlyTotals(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/monthly-totals", nil)
	w := httptest.NewRecorder()
	handlers.HandleMonthlyTotals(w, req)

	var totals []struct {
		MonthName string `json:"month"`
		Quantity  int    `json:"quantity"`
		Peak      bool   `json:"peak"`
	}
	decodeData(t, w, &totals)

	want := []int{5, 3, 4, 2}
	if len(totals) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(totals))
	}
	for i, q := range want {
		if totals[i].Quantity != q {
			t.Errorf("month %s: expected %d, got %d", totals[i].MonthName, q, totals[i].Quantity)
		}
	}
	if !totals[0].Peak {
		t.Error("expected January to be the peak month")
	}
}

func TestAPIHandlers_HandleTierDistribution(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	tests := []struct {
		name      string
		query     string
		status    int
		premium   int
		basic     int
		unmatched int
	}{
		{"all products", "", http.StatusOK, 1, 2, 1},
		{"explicit all", "?product=all", http.StatusOK, 1, 2, 1},
		{"product A", "?product=A", http.StatusOK, 1, 1, 0},
		{"lower case product", "?product=b", http.StatusOK, 0, 1, 1},
		{"unknown product", "?product=Q", http.StatusNotFound, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tier-distribution"+tt.query, nil)
			w := httptest.NewRecorder()
			handlers.HandleTierDistribution(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusOK {
				return
			}

			var dist struct {
				Premium   int `json:"premium"`
				Basic     int `json:"basic"`
				Unmatched int `json:"unmatched"`
			}
			decodeData(t, w, &dist)
			if dist.Premium != tt.premium || dist.Basic != tt.basic || dist.Unmatched != tt.unmatched {
				t.Errorf("expected %d/%d/%d, got %+v", tt.premium, tt.basic, tt.unmatched, dist)
			}
		})
	}
}

func TestAPIHandlers_HandleDropReport(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/drop-report", nil)
	w := httptest.NewRecorder()
	handlers.HandleDropReport(w, req)

	var body struct {
		Total int `json:"total"`
	}
	decodeData(t, w, &body)
	if body.Total != 0 {
		t.Errorf("expected no dropped rows, got %d", body.Total)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(failingDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	// Health endpoint should NOT have cache-control header
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	var health map[string]string
	decodeData(t, w, &health)
	if health["status"] != "healthy" {
		t.Errorf("expected status healthy, got %q", health["status"])
	}
	if health["timestamp"] == "" {
		t.Error("expected non-empty timestamp")
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	decodeData(t, w, &stats)
	if stats["month_policy"] != "reject" {
		t.Errorf("expected month_policy reject, got %v", stats["month_policy"])
	}
}

// Every data endpoint reports a failed run as a pipeline diagnostic.
func TestAPIHandlers_PipelineFailure(t *testing.T) {
	handlers := NewAPIHandlers(failingDashboard(), testLogger())

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"kpi", handlers.HandleKPI},
		{"product-sales", handlers.HandleProductSales},
		{"monthly-product-sales", handlers.HandleMonthlyProductSales},
		{"monthly-totals", handlers.HandleMonthlyTotals},
		{"trends", handlers.HandleTrends},
		{"age-histogram", handlers.HandleAgeHistogram},
		{"tier-distribution", handlers.HandleTierDistribution},
		{"drop-report", handlers.HandleDropReport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/"+tt.name, nil)
			w := httptest.NewRecorder()
			tt.handler(w, req)

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d", w.Code)
			}

			var response struct {
				Success bool `json:"success"`
				Error   struct {
					Code   string `json:"code"`
					Stage  string `json:"stage"`
					Record string `json:"record"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Success {
				t.Error("expected success=false in response")
			}
			if response.Error.Code != "PIPELINE_ERROR" {
				t.Errorf("expected code PIPELINE_ERROR, got %q", response.Error.Code)
			}
			if response.Error.Stage != "aggregate" {
				t.Errorf("expected stage aggregate, got %q", response.Error.Stage)
			}
			if response.Error.Record != "Product_ID [Z]" {
				t.Errorf("expected record Product_ID [Z], got %q", response.Error.Record)
			}
		})
	}
}

// Test that handlers set correct headers consistently
func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewAPIHandlers(&stubDashboard{snap: createTestSnapshot(t)}, testLogger())

	apiEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"kpi", handlers.HandleKPI},
		{"product-sales", handlers.HandleProductSales},
		{"monthly-product-sales", handlers.HandleMonthlyProductSales},
		{"monthly-totals", handlers.HandleMonthlyTotals},
		{"trends", handlers.HandleTrends},
		{"age-histogram", handlers.HandleAgeHistogram},
		{"tier-distribution", handlers.HandleTierDistribution},
		{"drop-report", handlers.HandleDropReport},
	}

	for _, endpoint := range apiEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			endpoint.handler(w, req)

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=60" {
				t.Errorf("expected cache-control 'public, max-age=60', got %q", cc)
			}

			var response map[string]any
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Errorf("response should be valid JSON: %v", err)
			}
			if success, ok := response["success"].(bool); !ok || !success {
				t.Error("expected success=true in response")
			}
		})
	}
}
