// Package templates renders the dashboard page shell and the fragments that
// the SSE handlers patch into it.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/pipeline"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

	KPIContentID       = "kpi-content"
	MonthlyContentID   = "monthly-content"
	StockContentID     = "stock-content"
	CustomersContentID = "customers-content"
	TierContentID      = "tier-content"
	ErrorContentID     = "error-content"
)

var funcs = template.FuncMap{
	"rupiah": pipeline.FormatRupiah,
	"pct": func(part, total int) string {
		if total == 0 {
			return "0.0"
		}
		return decimal.NewFromInt(int64(part)).
			Div(decimal.NewFromInt(int64(total))).
			Mul(decimal.NewFromInt(100)).
			StringFixed(1)
	},
	"fixed1": func(f float64) string { return decimal.NewFromFloat(f).StringFixed(1) },
}

func component(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.Execute(w, data)
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>E-Commerce Sales Dashboard</title>
<script type="module" src="{{.Script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6fa;color:#222}
header{background:#1f3a5f;color:#fff;padding:1rem 2rem}
main{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1rem;padding:1rem 2rem}
section{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.kpi-grid{display:grid;grid-template-columns:repeat(5,1fr);gap:.5rem}
.kpi{text-align:center}.kpi strong{display:block;font-size:1.4rem}
.modern-table{width:100%;border-collapse:collapse}.modern-table td,.modern-table th{padding:.3rem .5rem;border-bottom:1px solid #eee;text-align:left}
.restock{color:#c0392b;font-weight:600}.safe{color:#27ae60}
.marker-max{background:#eafaf1}.marker-min{background:#fdecea}
.peak{font-weight:700}.error{color:#c0392b}
</style>
</head>
<body data-signals="{product: ''}">
<header>
<h1>E-Commerce Sales Dashboard</h1>
<nav><a href="/export/summary.xlsx" style="color:#fff">Download XLSX</a> · <button data-on-click="@get('/sse/refresh-all')">Refresh</button></nav>
</header>
<div id="{{.ErrorID}}"></div>
<main>
<section style="grid-column:1/-1">
<h2>Key Metrics</h2>
<div id="{{.KPIID}}" data-on-load="@get('/sse/kpi')">Loading…</div>
</section>
<section>
<h2>Monthly Sales Trend</h2>
<img src="/charts/monthly-trend.png" alt="Monthly units sold with linear trend" width="560">
<div id="{{.MonthlyID}}" data-on-load="@get('/sse/monthly')">Loading…</div>
</section>
<section>
<h2>Stock Status</h2>
<div id="{{.StockID}}" data-on-load="@get('/sse/stock')">Loading…</div>
</section>
<section>
<h2>Customers</h2>
<div id="{{.CustomersID}}" data-on-load="@get('/sse/customers')">Loading…</div>
</section>
<section>
<h2>Customer Tier by Product</h2>
<label for="product-select">Product</label>
<select id="product-select" data-bind-product data-on-change="@get('/sse/tier-distribution')">
<option value="">All products</option>
{{range .ProductIDs}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
<div id="{{.TierID}}" data-on-load="@get('/sse/tier-distribution')">Loading…</div>
</section>
</main>
</body>
</html>
`))

type dashboardData struct {
	Script      string
	ProductIDs  []string
	ErrorID     string
	KPIID       string
	MonthlyID   string
	StockID     string
	CustomersID string
	TierID      string
}

// Dashboard is the page shell. Every panel loads itself over SSE.
func Dashboard(productIDs []string) templ.Component {
	return component(dashboardTemplate, dashboardData{
		Script:      datastarScript,
		ProductIDs:  productIDs,
		ErrorID:     ErrorContentID,
		KPIID:       KPIContentID,
		MonthlyID:   MonthlyContentID,
		StockID:     StockContentID,
		CustomersID: CustomersContentID,
		TierID:      TierContentID,
	})
}
