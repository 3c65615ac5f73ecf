// Package templates holds the dashboard page components. The page is a
// single templ.Component: Datastar drives the filter loop against /sse/views
// and Chart.js renders the patched signals client-side.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"superstore-dashboard/internal/models"
)

// Dashboard renders the full dashboard page. Filter options are baked into
// the selects server-side; everything below the filter bar updates through
// SSE patches.
func Dashboard(options models.FilterOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageTop); err != nil {
			return err
		}
		selects := []struct {
			signal string
			label  string
			values []string
		}{
			{"year", "Year", options.Years},
			{"region", "Region", options.Regions},
			{"segment", "Segment", options.Segments},
			{"category", "Category", options.Categories},
		}
		for _, s := range selects {
			if err := writeSelect(w, s.signal, s.label, s.values); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, pageBottom)
		return err
	})
}

func writeSelect(w io.Writer, signal, label string, values []string) error {
	if _, err := fmt.Fprintf(w, `<label class="filter-label">%s<select data-bind-%s data-on-change="@get('/sse/views')">`,
		templ.EscapeString(label), templ.EscapeString(signal)); err != nil {
		return err
	}
	for _, v := range values {
		escaped := templ.EscapeString(v)
		if _, err := fmt.Fprintf(w, `<option value="%s">%s</option>`, escaped, escaped); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</select></label>`)
	return err
}

const pageTop = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Superstore Sales Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
body{font-family:Arial,sans-serif;max-width:1200px;margin:18px auto;padding:0 14px;background:#f7f7f9}
h1{margin:0 0 6px 0}
.subtitle{opacity:.8;margin-bottom:14px}
.filters{display:flex;gap:12px;flex-wrap:wrap;padding:14px;border:1px solid rgba(0,0,0,.08);border-radius:14px;background:#fff;margin-bottom:12px}
.filter-label{font-size:12px;opacity:.85;display:flex;flex-direction:column;gap:4px}
.kpi-grid{display:grid;grid-template-columns:repeat(5,1fr);gap:12px;margin-bottom:12px}
.kpi-card{padding:12px 14px;border:1px solid rgba(0,0,0,.08);border-radius:14px;background:#fff}
.kpi-title{font-size:12px;opacity:.75}
.kpi-value{font-size:24px;font-weight:700;margin-top:4px}
.chart-grid{display:grid;grid-template-columns:1fr 1fr;gap:12px}
.chart-card{padding:14px;border:1px solid rgba(0,0,0,.08);border-radius:14px;background:#fff}
.chart-card.wide{grid-column:1 / -1}
.toolbar{margin:10px 0}
</style>
</head>
<body data-signals='{"year":"All","region":"All","segment":"All","category":"All","monthlyTrend":[],"states":[],"subCategories":[],"discountBuckets":[],"shipModes":[]}' data-on-load="@get('/sse/views')">
<h1>Superstore Sales Dashboard</h1>
<div class="subtitle">Interactive analysis of retail sales performance: trends, regions, products, discounts, and shipping.</div>
<div class="filters">
`

const pageBottom = `<a class="toolbar" data-attr-href="'/api/export?year='+$year+'&region='+$region+'&segment='+$segment+'&category='+$category" href="/api/export">Download XLSX</a>
</div>
<div id="kpi-strip" class="kpi-grid"></div>
<div class="chart-grid" data-effect="renderCharts($monthlyTrend, $states, $subCategories, $discountBuckets, $shipModes)">
<div class="chart-card wide"><h3>Sales and Profit Over Time</h3><canvas id="chart-trend"></canvas></div>
<div class="chart-card"><h3>Profit by State</h3><canvas id="chart-states"></canvas></div>
<div class="chart-card"><h3>Profit by Sub-Category</h3><canvas id="chart-subcat"></canvas></div>
<div class="chart-card"><h3>Profit Margin by Discount Bucket</h3><canvas id="chart-discount"></canvas></div>
<div class="chart-card"><h3>Average Profit per Order by Ship Mode</h3><canvas id="chart-ship"></canvas></div>
</div>
<div class="subtitle">Tip: all charts update together when any filter changes.</div>
<script>
const charts = {};
function draw(id, type, labels, datasets) {
  if (charts[id]) { charts[id].destroy(); }
  charts[id] = new Chart(document.getElementById(id), {
    type: type,
    data: { labels: labels, datasets: datasets },
    options: { responsive: true, animation: false }
  });
}
function renderCharts(trend, states, subcats, buckets, shipModes) {
  draw('chart-trend', 'line', trend.map(p => p.month), [
    { label: 'Sales', data: trend.map(p => p.sales) },
    { label: 'Profit', data: trend.map(p => p.profit) }
  ]);
  draw('chart-states', 'bar', states.map(s => s.state_abbr || s.state), [
    { label: 'Profit', data: states.map(s => s.profit) }
  ]);
  draw('chart-subcat', 'bar', subcats.map(s => s.sub_category), [
    { label: 'Profit', data: subcats.map(s => s.profit) }
  ]);
  draw('chart-discount', 'bar', buckets.map(b => b.bucket), [
    { label: 'Margin', data: buckets.map(b => b.margin) }
  ]);
  draw('chart-ship', 'bar', shipModes.map(s => s.ship_mode), [
    { label: 'Profit per Order', data: shipModes.map(s => s.profit_per_order) }
  ]);
}
</script>
</body>
</html>
`
