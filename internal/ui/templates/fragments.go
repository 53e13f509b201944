package templates

import (
	"html/template"

	"github.com/a-h/templ"

	"ecommerce-dashboard/internal/models"
)

var kpiTemplate = template.Must(template.New("kpi").Funcs(funcs).Parse(`<div id="` + KPIContentID + `" class="kpi-grid">
<div class="kpi"><strong>{{.TotalCustomers}}</strong>Customers</div>
<div class="kpi"><strong>{{.TotalUnitsSold}}</strong>Units sold</div>
<div class="kpi"><strong>{{.TotalSalesFormatted}}</strong>Total sales</div>
<div class="kpi"><strong>{{.BasicCustomers}}</strong>Basic</div>
<div class="kpi"><strong>{{.PremiumCustomers}}</strong>Premium</div>
</div>`))

func KPICards(kpi models.KPI) templ.Component {
	return component(kpiTemplate, kpi)
}

var monthlyTemplate = template.Must(template.New("monthly").Funcs(funcs).Parse(`<div id="` + MonthlyContentID + `">
<table class="modern-table">
<thead><tr><th>Month</th><th>Units</th><th>Trend</th></tr></thead>
<tbody>
{{range $i, $m := .Totals}}<tr{{if $m.Peak}} class="peak"{{end}}>
<td>{{$m.MonthName}}</td>
<td>{{$m.Quantity}}</td>
<td>{{if lt $i (len $.Fitted)}}{{fixed1 (index $.Fitted $i)}}{{end}}</td>
</tr>
{{end}}</tbody>
</table>
<table class="modern-table">
<thead><tr><th>Product</th>{{range .Months}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Products}}<tr><td>{{.ProductID}}</td>{{range .Actual}}<td>{{fixed1 .}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</div>`))

type monthlyData struct {
	Totals   []models.MonthlyTotal
	Fitted   []float64
	Months   []string
	Products []models.TrendSeries
}

// MonthlyTable shows the per-month totals next to the fitted aggregate trend,
// followed by one row per product.
func MonthlyTable(totals []models.MonthlyTotal, total models.TrendSeries, products []models.TrendSeries) templ.Component {
	return component(monthlyTemplate, monthlyData{
		Totals:   totals,
		Fitted:   total.Fitted,
		Months:   total.Months,
		Products: products,
	})
}

var stockTemplate = template.Must(template.New("stock").Funcs(funcs).Parse(`<div id="` + StockContentID + `">
<table class="modern-table">
<thead><tr><th>Product</th><th>Sold</th><th>Warehouse</th><th>Remaining</th><th>Threshold</th><th>Sales</th><th>Status</th></tr></thead>
<tbody>
{{range .}}<tr class="marker-{{.Marker}}">
<td>{{.ProductID}}</td>
<td>{{.Quantity}}</td>
<td>{{.WarehouseQty}}</td>
<td>{{.Sisa}}</td>
<td>{{.RestockThreshold}}</td>
<td>{{rupiah .TotalSales}}</td>
<td class="{{if eq .Status "Restock"}}restock{{else}}safe{{end}}">{{.Status}}</td>
</tr>
{{end}}</tbody>
</table>
</div>`))

type stockRow struct {
	models.ProductSalesSummary
	Marker models.SalesMarker
}

// StockTable lists every catalog product with its restock status. Rows holding
// the highest and lowest sales are highlighted.
func StockTable(summaries []models.ProductSalesSummary, markers []models.ProductSalesMarker) templ.Component {
	byProduct := make(map[string]models.SalesMarker, len(markers))
	for _, m := range markers {
		byProduct[m.ProductID] = m.Marker
	}
	rows := make([]stockRow, len(summaries))
	for i, s := range summaries {
		marker, ok := byProduct[s.ProductID]
		if !ok {
			marker = models.MarkerNeither
		}
		rows[i] = stockRow{ProductSalesSummary: s, Marker: marker}
	}
	return component(stockTemplate, rows)
}

var customersTemplate = template.Must(template.New("customers").Funcs(funcs).Parse(`<div id="` + CustomersContentID + `">
<table class="modern-table">
<thead><tr><th>Age</th><th>Customers</th></tr></thead>
<tbody>
{{range .}}<tr><td>{{.Lower}}–{{.Upper}}</td><td>{{.Count}}</td></tr>
{{else}}<tr><td colspan="2">No customers</td></tr>
{{end}}</tbody>
</table>
</div>`))

func AgeHistogram(buckets []models.AgeBucket) templ.Component {
	return component(customersTemplate, buckets)
}

var tierTemplate = template.Must(template.New("tier").Funcs(funcs).Parse(`<div id="` + TierContentID + `">
<p>{{if .ProductID}}Product {{.ProductID}}{{else}}All products{{end}}: {{.Total}} transactions</p>
<table class="modern-table">
<tbody>
<tr><td>Premium</td><td>{{.Premium}}</td><td>{{pct .Premium .Total}}%</td></tr>
<tr><td>Basic</td><td>{{.Basic}}</td><td>{{pct .Basic .Total}}%</td></tr>
{{if .Unmatched}}<tr><td>Unknown customer</td><td>{{.Unmatched}}</td><td>{{pct .Unmatched .Total}}%</td></tr>
{{end}}</tbody>
</table>
</div>`))

func TierPanel(dist models.TierDistribution) templ.Component {
	return component(tierTemplate, dist)
}

var errorTemplate = template.Must(template.New("error").Parse(`<div id="` + ErrorContentID + `" class="error" role="alert">
<strong>{{.Message}}</strong>
{{if .Stage}}<p>Stage: {{.Stage}}{{if .Record}} · Record: {{.Record}}{{end}}</p>{{end}}
{{if .Details}}<p>{{.Details}}</p>{{end}}
</div>`))

// ErrorData is what PipelineError shows to the user.
type ErrorData struct {
	Message string
	Stage   string
	Record  string
	Details string
}

func PipelineError(data ErrorData) templ.Component {
	return component(errorTemplate, data)
}

var clearErrorTemplate = template.Must(template.New("clear").Parse(`<div id="` + ErrorContentID + `"></div>`))

// ClearError empties the diagnostic area after a successful run.
func ClearError() templ.Component {
	return component(clearErrorTemplate, nil)
}
