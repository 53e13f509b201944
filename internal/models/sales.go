package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockRestock StockStatus = "Restock"
	StockSafe    StockStatus = "Terpenuhi Aman"
)

type SalesMarker string

const (
	MarkerMax     SalesMarker = "max"
	MarkerMin     SalesMarker = "min"
	MarkerNeither SalesMarker = "neither"
)

type ProductSalesSummary struct {
	ProductID        string          `json:"product_id"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	WarehouseQty     int             `json:"warehouse_qty"`
	RestockThreshold int             `json:"restock_threshold"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	Sisa             int             `json:"sisa"`
	Status           StockStatus     `json:"status,omitempty"`
}

type MonthlyProductSales struct {
	ProductID string     `json:"product_id"`
	Month     time.Month `json:"-"`
	MonthName string     `json:"month"`
	Quantity  int        `json:"quantity"`
}

type MonthlyTotal struct {
	Month     time.Month `json:"-"`
	MonthName string     `json:"month"`
	Quantity  int        `json:"quantity"`
	Peak      bool       `json:"peak"`
}

type TierDistribution struct {
	ProductID string `json:"product_id,omitempty"`
	Premium   int    `json:"premium"`
	Basic     int    `json:"basic"`
	Unmatched int    `json:"unmatched"`
}

// Total is the number of joined transaction rows the distribution was built from.
func (d TierDistribution) Total() int {
	return d.Premium + d.Basic + d.Unmatched
}

type TrendSeries struct {
	ProductID string    `json:"product_id,omitempty"`
	Months    []string  `json:"months"`
	Actual    []float64 `json:"actual"`
	Fitted    []float64 `json:"fitted"`
}

type AgeBucket struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
	Count int `json:"count"`
}

type ProductSalesMarker struct {
	ProductID  string          `json:"product_id"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Marker     SalesMarker     `json:"marker"`
}

type KPI struct {
	TotalCustomers      int             `json:"total_customers"`
	TotalUnitsSold      int             `json:"total_units_sold"`
	TotalSales          decimal.Decimal `json:"total_sales"`
	TotalSalesFormatted string          `json:"total_sales_formatted"`
	BasicCustomers      int             `json:"basic_customers"`
	PremiumCustomers    int             `json:"premium_customers"`
}

// DropReport tallies rows removed during normalization, keyed by source then reason.
type DropReport map[string]map[string]int

func (r DropReport) Add(source, reason string, n int) {
	if n == 0 {
		return
	}
	if r[source] == nil {
		r[source] = make(map[string]int)
	}
	r[source][reason] += n
}

func (r DropReport) Total() int {
	total := 0
	for _, reasons := range r {
		for _, n := range reasons {
			total += n
		}
	}
	return total
}
