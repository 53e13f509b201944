package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

// MonthWindow is the fixed, ordered set of months the dashboard reports on.
type MonthWindow []time.Month

var DefaultMonthWindow = MonthWindow{time.January, time.February, time.March, time.April}

func ParseMonthWindow(s string) (MonthWindow, error) {
	var w MonthWindow
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m, err := time.Parse("January", Capitalize(name))
		if err != nil {
			return nil, fmt.Errorf("unknown month %q", name)
		}
		if w.Contains(m.Month()) {
			return nil, fmt.Errorf("month %q listed twice", name)
		}
		w = append(w, m.Month())
	}
	if len(w) == 0 {
		return nil, fmt.Errorf("month window is empty")
	}
	return w, nil
}

func (w MonthWindow) Contains(m time.Month) bool {
	return slices.Contains(w, m)
}

func (w MonthWindow) Names() []string {
	names := make([]string, len(w))
	for i, m := range w {
		names[i] = m.String()
	}
	return names
}

func (w MonthWindow) String() string {
	return strings.Join(w.Names(), ",")
}

type MonthPolicy string

const (
	MonthPolicyReject  MonthPolicy = "reject"
	MonthPolicyExclude MonthPolicy = "exclude"
)

const reasonOutsideWindow = "month outside window"

// ApplyMonthWindow enforces the month policy. With reject, any transaction
// outside the window is an error; with exclude, such rows are removed and the
// number removed is returned.
func ApplyMonthWindow(txs []models.Transaction, window MonthWindow, policy MonthPolicy) ([]models.Transaction, int, error) {
	kept := make([]models.Transaction, 0, len(txs))
	excluded := 0
	for _, tx := range txs {
		if window.Contains(tx.Date.Month()) {
			kept = append(kept, tx)
			continue
		}
		if policy != MonthPolicyExclude {
			return nil, 0, &UnexpectedMonthError{ProductID: tx.ProductID, Date: tx.Date, Window: window}
		}
		excluded++
	}
	return kept, excluded, nil
}

// QuantitySource is anything that can report units sold per product.
type QuantitySource interface {
	QuantityByProduct() map[string]int
}

type ProductTotals map[string]int

func (t ProductTotals) QuantityByProduct() map[string]int {
	return maps.Clone(t)
}

func (t ProductTotals) Sum() int {
	total := 0
	for _, q := range t {
		total += q
	}
	return total
}

type SalesSummaries []models.ProductSalesSummary

func (s SalesSummaries) QuantityByProduct() map[string]int {
	out := make(map[string]int, len(s))
	for _, row := range s {
		out[row.ProductID] += row.Quantity
	}
	return out
}

func (s SalesSummaries) TotalSales() decimal.Decimal {
	total := decimal.Zero
	for _, row := range s {
		total = total.Add(row.TotalSales)
	}
	return total
}

func TotalQuantityByProduct(txs []models.Transaction) ProductTotals {
	totals := make(ProductTotals)
	for _, tx := range txs {
		totals[tx.ProductID] += tx.Quantity
	}
	return totals
}

// MergeWithProducts left-joins the catalog with units sold. Every catalog row
// is kept; products without sales get zero quantity and zero sales. A sold
// product that is missing from the catalog is an error.
func MergeWithProducts(src QuantitySource, products []models.Product) (SalesSummaries, error) {
	qty := src.QuantityByProduct()

	catalog := make(map[string]bool, len(products))
	for _, p := range products {
		catalog[p.ProductID] = true
	}
	var missing []string
	for id := range qty {
		if !catalog[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &MissingProductReferenceError{ProductIDs: missing}
	}

	out := make(SalesSummaries, 0, len(products))
	for _, p := range products {
		q := qty[p.ProductID]
		out = append(out, models.ProductSalesSummary{
			ProductID:        p.ProductID,
			Quantity:         q,
			UnitPrice:        p.UnitPrice,
			WarehouseQty:     p.WarehouseQty,
			RestockThreshold: p.RestockThreshold,
			TotalSales:       p.UnitPrice.Mul(decimal.NewFromInt(int64(q))),
		})
	}
	slices.SortFunc(out, func(a, b models.ProductSalesSummary) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})
	return out, nil
}

// StockStatus returns a copy of summaries with Sisa and Status filled in.
// Restock applies only when Sisa is strictly below the threshold.
func StockStatus(summaries SalesSummaries) SalesSummaries {
	out := slices.Clone(summaries)
	for i := range out {
		out[i].Sisa = out[i].WarehouseQty - out[i].Quantity
		if out[i].Sisa < out[i].RestockThreshold {
			out[i].Status = models.StockRestock
		} else {
			out[i].Status = models.StockSafe
		}
	}
	return out
}

// MonthlyQuantityByProductAndMonth sums quantity per (product, month). Rows are
// ordered by product, then by position in the window.
func MonthlyQuantityByProductAndMonth(txs []models.Transaction, window MonthWindow) ([]models.MonthlyProductSales, error) {
	type key struct {
		product string
		month   time.Month
	}
	groups := make(map[key]int)
	for _, tx := range txs {
		m := tx.Date.Month()
		if !window.Contains(m) {
			return nil, &UnexpectedMonthError{ProductID: tx.ProductID, Date: tx.Date, Window: window}
		}
		groups[key{tx.ProductID, m}] += tx.Quantity
	}

	out := make([]models.MonthlyProductSales, 0, len(groups))
	for k, q := range groups {
		out = append(out, models.MonthlyProductSales{
			ProductID: k.product,
			Month:     k.month,
			MonthName: k.month.String(),
			Quantity:  q,
		})
	}
	slices.SortFunc(out, func(a, b models.MonthlyProductSales) int {
		if c := strings.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return slices.Index(window, a.Month) - slices.Index(window, b.Month)
	})
	return out, nil
}

// MonthlyQuantityTotal sums quantity per month, one row per window month with
// missing months as zero. The first month holding the maximum is marked Peak.
func MonthlyQuantityTotal(txs []models.Transaction, window MonthWindow) ([]models.MonthlyTotal, error) {
	sums := make(map[time.Month]int, len(window))
	for _, tx := range txs {
		m := tx.Date.Month()
		if !window.Contains(m) {
			return nil, &UnexpectedMonthError{ProductID: tx.ProductID, Date: tx.Date, Window: window}
		}
		sums[m] += tx.Quantity
	}

	out := make([]models.MonthlyTotal, len(window))
	peak := 0
	for i, m := range window {
		out[i] = models.MonthlyTotal{Month: m, MonthName: m.String(), Quantity: sums[m]}
		if out[i].Quantity > out[peak].Quantity {
			peak = i
		}
	}
	if len(out) > 0 {
		out[peak].Peak = true
	}
	return out, nil
}

// ProductSeries is a product's monthly quantities laid out over the window.
type ProductSeries struct {
	ProductID string
	Values    []float64
}

// ProductMonthSeries pivots monthly rows into one zero-filled series per
// product, ordered by product ID.
func ProductMonthSeries(monthly []models.MonthlyProductSales, window MonthWindow) []ProductSeries {
	byProduct := make(map[string][]float64)
	for _, row := range monthly {
		idx := slices.Index(window, row.Month)
		if idx < 0 {
			continue
		}
		values, ok := byProduct[row.ProductID]
		if !ok {
			values = make([]float64, len(window))
			byProduct[row.ProductID] = values
		}
		values[idx] += float64(row.Quantity)
	}

	ids := slices.Sorted(maps.Keys(byProduct))
	out := make([]ProductSeries, 0, len(ids))
	for _, id := range ids {
		out = append(out, ProductSeries{ProductID: id, Values: byProduct[id]})
	}
	return out
}

// JoinTransactionsWithUsers left-joins transactions with users on UserID.
func JoinTransactionsWithUsers(txs []models.Transaction, users []models.User) []models.TransactionWithUser {
	index := make(map[string]models.User, len(users))
	for _, u := range users {
		if _, ok := index[u.UserID]; !ok {
			index[u.UserID] = u
		}
	}
	out := make([]models.TransactionWithUser, 0, len(txs))
	for _, tx := range txs {
		row := models.TransactionWithUser{Transaction: tx}
		if u, ok := index[tx.UserID]; ok {
			row.Age = u.Age
			row.Status = u.Status
		}
		out = append(out, row)
	}
	return out
}

// TierDistribution counts joined transaction rows per tier. An empty
// productID counts every product.
func TierDistribution(joined []models.TransactionWithUser, productID string) models.TierDistribution {
	dist := models.TierDistribution{ProductID: productID}
	for _, row := range joined {
		if productID != "" && row.ProductID != productID {
			continue
		}
		switch row.Status {
		case models.TierPremium:
			dist.Premium++
		case models.TierBasic:
			dist.Basic++
		default:
			dist.Unmatched++
		}
	}
	return dist
}

// ExtremeSalesMarkers flags every product whose total sales equal the global
// maximum or minimum. When all totals are equal every product is marked max.
func ExtremeSalesMarkers(summaries SalesSummaries) []models.ProductSalesMarker {
	if len(summaries) == 0 {
		return nil
	}
	hi, lo := summaries[0].TotalSales, summaries[0].TotalSales
	for _, s := range summaries[1:] {
		if s.TotalSales.GreaterThan(hi) {
			hi = s.TotalSales
		}
		if s.TotalSales.LessThan(lo) {
			lo = s.TotalSales
		}
	}

	out := make([]models.ProductSalesMarker, len(summaries))
	for i, s := range summaries {
		marker := models.MarkerNeither
		switch {
		case s.TotalSales.Equal(hi):
			marker = models.MarkerMax
		case s.TotalSales.Equal(lo):
			marker = models.MarkerMin
		}
		out[i] = models.ProductSalesMarker{ProductID: s.ProductID, TotalSales: s.TotalSales, Marker: marker}
	}
	return out
}
