package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
	chartScript    = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"
)

// DashboardView carries the values the page shell needs before any data has
// been streamed.
type DashboardView struct {
	Years          []int
	Countries      []string
	Categories     []string
	DefaultHorizon int
	MaxHorizon     int
}

const dashboardStyle = `<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f4f6fb;color:#1f2937}
header{background:#1e3a8a;color:#fff;padding:1.5rem 2rem}
header p{margin:.25rem 0 0;opacity:.8}
main{padding:1.5rem 2rem;display:grid;gap:1.5rem;grid-template-columns:repeat(auto-fit,minmax(420px,1fr))}
section{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
section.wide{grid-column:1/-1}
.filters{display:flex;gap:1rem;align-items:end;flex-wrap:wrap}
.kpi-grid{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.kpi-card{display:flex;flex-direction:column;padding:.75rem;background:#eef2ff;border-radius:6px}
.kpi-label{font-size:.8rem;text-transform:uppercase;opacity:.7}
.kpi-value{font-size:1.4rem;font-weight:600}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #e5e7eb;text-align:left}
.category-badge{background:#dbeafe;border-radius:4px;padding:.1rem .4rem}
.forecast-unavailable{background:#fef3c7;padding:.75rem;border-radius:6px}
.loading{opacity:.6}
</style>`

const chartScriptBody = `<script>
window.bi = window.bi || {charts:{}};
window.bi.draw = function(id, type, labels, datasets){
  const el = document.getElementById(id);
  if (!el || !window.Chart) return;
  if (window.bi.charts[id]) window.bi.charts[id].destroy();
  window.bi.charts[id] = new Chart(el, {type: type, data: {labels: labels, datasets: datasets}, options: {responsive: true}});
};
window.bi.monthly = function(rows){
  if (!rows) return;
  window.bi.draw('monthly-chart', 'line', rows.map(r => r.month.slice(0, 7)), [{label: 'Revenue', data: rows.map(r => r.revenue)}]);
};
window.bi.forecast = function(f){
  if (!f || !f.available) return;
  const hist = f.history || [], fc = f.forecast || [];
  const labels = hist.map(r => r.month.slice(0, 7)).concat(fc.map(r => r.month.slice(0, 7)));
  const pad = hist.map(() => null);
  window.bi.draw('forecast-chart', 'line', labels, [
    {label: 'History', data: hist.map(r => r.revenue)},
    {label: 'Forecast', data: pad.concat(fc.map(r => r.forecast)), borderDash: [6, 4]}
  ]);
};
</script>`

const refreshAction = `@get('/sse/refresh-all?year=' + $year + '&country=' + encodeURIComponent($country) + '&category=' + encodeURIComponent($category) + '&horizon=' + $horizon)`

func Dashboard(view DashboardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>Sales Revenue Dashboard</title>`)
		h.rawf(`<script type="module" src="%s"></script>`, datastarScript)
		h.rawf(`<script src="%s"></script>`, chartScript)
		h.raw(dashboardStyle)
		h.raw(chartScriptBody)
		h.raw(`</head>`)

		h.rawf(`<body data-signals="{year: '', country: '', category: '', horizon: %d, monthlyData: [], forecastData: {}}"`, view.DefaultHorizon)
		h.raw(` data-on-load="` + templ.EscapeString(refreshAction) + `"`)
		h.raw(` data-effect="window.bi.monthly($monthlyData); window.bi.forecast($forecastData)">`)

		h.raw(`<header><h1>Sales Revenue Dashboard</h1>`)
		h.raw(`<p>Revenue analytics with a Holt-Winters monthly forecast</p></header>`)
		h.raw(`<main>`)

		h.raw(`<section class="wide"><h2>Filters</h2><div class="filters">`)
		h.raw(`<label>Year <select data-bind-year><option value="">All</option>`)
		for _, y := range view.Years {
			v := strconv.Itoa(y)
			h.raw(`<option value="` + v + `">` + v + `</option>`)
		}
		h.raw(`</select></label>`)
		selectFilter(h, "Country", "country", view.Countries)
		selectFilter(h, "Category", "category", view.Categories)
		h.rawf(`<label>Horizon <input type="number" min="1" max="%d" data-bind-horizon></label>`, view.MaxHorizon)
		h.raw(`<button data-on-click="` + templ.EscapeString(refreshAction) + `">Apply</button>`)
		h.raw(`</div></section>`)

		h.raw(`<section class="wide"><h2>Key Metrics</h2><div id="kpi-content" class="loading">Loading...</div></section>`)
		h.raw(`<section><h2>Revenue by Category</h2><div id="category-content" class="loading">Loading...</div></section>`)
		h.raw(`<section><h2>Revenue by Country</h2><div id="country-content" class="loading">Loading...</div></section>`)
		h.raw(`<section><h2>Top Profitable Sub-Categories</h2><div id="subcategory-content" class="loading">Loading...</div></section>`)
		h.raw(`<section><h2>Monthly Sales</h2><canvas id="monthly-chart"></canvas></section>`)
		h.raw(`<section class="wide"><h2>Monthly Revenue by Year</h2><div id="pivot-content" class="loading">Loading...</div></section>`)
		h.raw(`<section class="wide"><h2>Revenue Forecast</h2><canvas id="forecast-chart"></canvas>`)
		h.raw(`<div id="forecast-content" class="loading">Loading...</div></section>`)

		h.raw(`</main></body></html>`)
		return h.err
	})
}

func selectFilter(h *htmlWriter, label, signal string, values []string) {
	h.raw(`<label>`)
	h.text(label)
	h.raw(` <select data-bind-` + signal + `><option value="">All</option>`)
	for _, v := range values {
		h.raw(`<option value="`)
		h.text(v)
		h.raw(`">`)
		h.text(v)
		h.raw(`</option>`)
	}
	h.raw(`</select></label>`)
}
