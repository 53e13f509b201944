package pipeline

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ecommerce-dashboard/internal/models"
)

var rupiahPrinter = message.NewPrinter(language.English)

// FormatRupiah renders an amount as "Rp11,000": no decimals, comma grouping,
// half-to-even rounding.
func FormatRupiah(amount decimal.Decimal) string {
	return rupiahPrinter.Sprintf("Rp%d", amount.RoundBank(0).IntPart())
}

// ComputeKPI derives the headline metrics. Customer tier counts are distinct
// users, not transactions.
func ComputeKPI(users []models.User, txs []models.Transaction, summaries SalesSummaries) models.KPI {
	kpi := models.KPI{TotalCustomers: len(users)}

	for _, tx := range txs {
		kpi.TotalUnitsSold += tx.Quantity
	}

	basic := make(map[string]struct{})
	premium := make(map[string]struct{})
	for _, u := range users {
		switch u.Status {
		case models.TierBasic:
			basic[u.UserID] = struct{}{}
		case models.TierPremium:
			premium[u.UserID] = struct{}{}
		}
	}
	kpi.BasicCustomers = len(basic)
	kpi.PremiumCustomers = len(premium)

	kpi.TotalSales = summaries.TotalSales()
	kpi.TotalSalesFormatted = FormatRupiah(kpi.TotalSales)
	return kpi
}
