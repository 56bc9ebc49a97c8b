package forecast

import (
	"slices"
	"time"

	"bi-dashboard/internal/models"
)

// MonthEnd returns the canonical key for the calendar month containing t: the last
// day of that month at midnight UTC. Year and month are read in t's own location.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// NextMonthEnd returns the key of the calendar month following the given key.
func NextMonthEnd(key time.Time) time.Time {
	return time.Date(key.Year(), key.Month()+2, 0, 0, 0, 0, 0, time.UTC)
}

// MonthlySeries sums revenue per calendar month. Months without transactions are
// absent from the result, not zero.
func MonthlySeries(txs []models.Transaction) []models.MonthlyRevenue {
	groups := make(map[time.Time]float64)
	for _, tx := range txs {
		groups[MonthEnd(tx.Date)] += tx.Revenue
	}

	series := make([]models.MonthlyRevenue, 0, len(groups))
	for month, revenue := range groups {
		series = append(series, models.MonthlyRevenue{Month: month, Revenue: revenue})
	}
	slices.SortFunc(series, func(a, b models.MonthlyRevenue) int {
		return a.Month.Compare(b.Month)
	})
	return series
}
