package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"bi-dashboard/internal/models"
	"bi-dashboard/internal/services"
)

// MaxTableRows caps the rows rendered into any dashboard table.
const MaxTableRows = 50

func KPICards(k models.KPIs) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="kpi-content" class="kpi-grid">`)
		card := func(label, value string) {
			h.raw(`<div class="kpi-card"><span class="kpi-label">`)
			h.text(label)
			h.raw(`</span><span class="kpi-value">`)
			h.text(value)
			h.raw(`</span></div>`)
		}
		card("Total Revenue", money(k.TotalRevenue))
		card("Total Profit", money(k.TotalProfit))
		card("Orders", strconv.Itoa(k.Orders))
		card("Average Order Value", money(k.AverageOrderValue))
		h.raw(`</div>`)
		return h.err
	})
}

func CategoryTable(rows []models.CategoryRevenue) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="category-content"><table class="modern-table">`)
		h.raw(`<thead><tr><th>Category</th><th>Revenue</th><th>Orders</th></tr></thead><tbody>`)
		for i, row := range rows {
			if i >= MaxTableRows {
				break
			}
			h.raw(`<tr><td><span class="category-badge">`)
			h.text(row.Category)
			h.raw(`</span></td><td><strong>`)
			h.text(money(row.Revenue))
			h.raw(`</strong></td><td>`)
			h.text(strconv.Itoa(row.Orders))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

func CountryTable(rows []models.CountryRevenue) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="country-content"><table class="modern-table">`)
		h.raw(`<thead><tr><th>Country</th><th>Revenue</th><th>Share</th></tr></thead><tbody>`)
		for i, row := range rows {
			if i >= MaxTableRows {
				break
			}
			h.raw(`<tr><td>`)
			h.text(row.Country)
			h.raw(`</td><td><strong>`)
			h.text(money(row.Revenue))
			h.raw(`</strong></td><td>`)
			h.rawf(`%.1f%%`, row.Share)
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

func SubCategoryTable(rows []models.SubCategoryProfit) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="subcategory-content"><table class="modern-table">`)
		h.raw(`<thead><tr><th>Sub-Category</th><th>Category</th><th>Profit</th></tr></thead><tbody>`)
		for _, row := range rows {
			h.raw(`<tr><td>`)
			h.text(row.SubCategory)
			h.raw(`</td><td><span class="category-badge">`)
			h.text(row.Category)
			h.raw(`</span></td><td><strong>`)
			h.text(money(row.Profit))
			h.raw(`</strong></td></tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

// PivotTable renders months as rows and years as columns. Missing cells are
// shown as a dash.
func PivotTable(rows []models.MonthlyPivotRow, years []int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="pivot-content"><table class="modern-table"><thead><tr><th>Month</th>`)
		for _, y := range years {
			h.rawf(`<th>%d</th>`, y)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, row := range rows {
			h.raw(`<tr><td>`)
			h.text(row.Month)
			h.raw(`</td>`)
			for _, y := range years {
				if v, ok := row.ByYear[y]; ok {
					h.raw(`<td>`)
					h.text(money(v))
					h.raw(`</td>`)
				} else {
					h.raw(`<td class="empty">-</td>`)
				}
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

func ForecastPanel(outcome services.ForecastOutcome) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div id="forecast-content">`)
		if !outcome.Available {
			h.raw(`<div class="forecast-unavailable" data-reason="`)
			h.text(string(outcome.Reason))
			h.raw(`"><strong>Forecast unavailable.</strong> `)
			h.text(outcome.Message)
			h.raw(`</div></div>`)
			return h.err
		}

		h.rawf(`<p class="forecast-caption">Next %d months</p>`, outcome.Horizon)
		h.raw(`<table class="modern-table"><thead><tr><th>Month</th><th>Forecast</th></tr></thead><tbody>`)
		for _, p := range outcome.Forecast {
			h.raw(`<tr><td>`)
			h.text(p.Month.Format("2006-01"))
			h.raw(`</td><td><strong>`)
			h.text(money(p.Forecast))
			h.raw(`</strong></td></tr>`)
		}
		h.raw(`</tbody></table>`)
		if outcome.Params != nil {
			h.raw(`<p class="forecast-params">`)
			h.text(fmt.Sprintf("α=%.3f β=%.3f γ=%.3f", outcome.Params.Alpha, outcome.Params.Beta, outcome.Params.Gamma))
			h.raw(`</p>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// Render renders c into a string for patching over SSE.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
