package models

import "time"

type Transaction struct {
	Date        time.Time
	Country     string
	State       string
	Category    string
	SubCategory string
	Product     string
	Quantity    int
	Revenue     float64
	Profit      float64
}

// MonthlyRevenue is one entry of a monthly series. Month is the last day of the
// calendar month at midnight UTC.
type MonthlyRevenue struct {
	Month   time.Time `json:"month"`
	Revenue float64   `json:"revenue"`
}

type ForecastPoint struct {
	Month    time.Time `json:"month"`
	Forecast float64   `json:"forecast"`
}

type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Orders   int     `json:"orders"`
}

type CountryRevenue struct {
	Country string  `json:"country"`
	Revenue float64 `json:"revenue"`
	Share   float64 `json:"share"`
}

type SubCategoryProfit struct {
	SubCategory string  `json:"sub_category"`
	Category    string  `json:"category"`
	Profit      float64 `json:"profit"`
}

// MonthlyPivotRow holds one calendar month across all years present in the data.
type MonthlyPivotRow struct {
	Month  string          `json:"month"`
	ByYear map[int]float64 `json:"by_year"`
}

type KPIs struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalProfit       float64 `json:"total_profit"`
	Orders            int     `json:"orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}
