package services

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bi-dashboard/internal/forecast"
	"bi-dashboard/internal/models"
)

const (
	batchSize    = 10000
	maxWorkers   = 10
	cacheVersion = "v2"
	cacheDir     = ".cache"
)

var (
	ErrNoValidRecords = errors.New("no valid records found")
	ErrMissingColumn  = errors.New("missing required column")
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Summary is the set of dashboard aggregates over one slice of transactions.
type Summary struct {
	KPIs              models.KPIs                `json:"kpis"`
	RevenueByCategory []models.CategoryRevenue   `json:"revenue_by_category"`
	RevenueByCountry  []models.CountryRevenue    `json:"revenue_by_country"`
	SubCategoryProfit []models.SubCategoryProfit `json:"sub_category_profit"`
	MonthlyPivot      []models.MonthlyPivotRow   `json:"monthly_pivot"`
	MonthlySales      []models.MonthlyRevenue    `json:"monthly_sales"`
	Years             []int                      `json:"years"`
}

// Facets lists the values available to the dashboard filters.
type Facets struct {
	Years      []int    `json:"years"`
	Countries  []string `json:"countries"`
	Categories []string `json:"categories"`
}

type PrecomputedData struct {
	Summary      Summary
	Facets       Facets
	Transactions []models.Transaction
	LastModified time.Time
	RecordCount  int64
	SkippedRows  int64
}

// Filter narrows the aggregates. Zero-valued fields match everything.
type Filter struct {
	Year     int
	Country  string
	Category string
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

func (f Filter) Match(tx models.Transaction) bool {
	if f.Year != 0 && tx.Date.Year() != f.Year {
		return false
	}
	if f.Country != "" && !strings.EqualFold(tx.Country, f.Country) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
		return false
	}
	return true
}

type Analytics struct {
	mu          sync.RWMutex
	precomputed *PrecomputedData
	csvPath     string
	version     atomic.Uint64
	logger      *slog.Logger
}

func NewAnalytics() *Analytics {
	return NewAnalyticsWithLogger(slog.Default())
}

func NewAnalyticsWithLogger(logger *slog.Logger) *Analytics {
	return &Analytics{
		precomputed: &PrecomputedData{},
		logger:      logger,
	}
}

func (a *Analytics) SetData(data []models.Transaction) {
	precomputed := &PrecomputedData{
		Summary:      computeSummary(data),
		Facets:       computeFacets(data),
		Transactions: slices.Clone(data),
		LastModified: time.Now(),
		RecordCount:  int64(len(data)),
	}
	a.store(precomputed)
}

func (a *Analytics) store(p *PrecomputedData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.precomputed = p
	a.version.Add(1)
}

// Version changes every time a new dataset is installed.
func (a *Analytics) Version() uint64 {
	return a.version.Load()
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.csvPath = filename

	if cached, err := a.loadFromCache(filename); err == nil {
		fileInfo, err := os.Stat(filename)
		if err == nil && fileInfo.ModTime().Before(cached.LastModified) {
			a.store(cached)
			a.logger.Info("loaded from cache", "records", cached.RecordCount)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", filename)

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	precomputed, err := a.processCSV(ctx, file)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}
	a.store(precomputed)

	if err := a.saveToCache(filename); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	a.logger.Info("csv processing complete",
		"records", precomputed.RecordCount,
		"skipped", precomputed.SkippedRows,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(precomputed.RecordCount)/duration.Seconds()))

	return nil
}

// LoadFromReader parses sales CSV data from r without touching the cache.
func (a *Analytics) LoadFromReader(ctx context.Context, r io.Reader) error {
	precomputed, err := a.processCSV(ctx, r)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}
	a.store(precomputed)
	return nil
}

func (a *Analytics) processCSV(ctx context.Context, r io.Reader) (*PrecomputedData, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var (
		txs     []models.Transaction
		skipped int64
	)
	batch := make([][]string, 0, batchSize)

	flush := func() error {
		parsed, bad, err := a.processBatch(ctx, batch, cols)
		if err != nil {
			return err
		}
		txs = append(txs, parsed...)
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("read record: %w", err)
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if len(txs) == 0 {
		return nil, ErrNoValidRecords
	}
	if skipped > 0 {
		a.logger.Warn("skipped malformed rows", "count", skipped)
	}

	return &PrecomputedData{
		Summary:      computeSummary(txs),
		Facets:       computeFacets(txs),
		Transactions: txs,
		LastModified: time.Now(),
		RecordCount:  int64(len(txs)),
		SkippedRows:  skipped,
	}, nil
}

// processBatch parses records concurrently. Output keeps input order so that
// aggregates are reproducible across runs.
func (a *Analytics) processBatch(ctx context.Context, batch [][]string, cols columnIndex) ([]models.Transaction, int64, error) {
	type parsedRow struct {
		tx    models.Transaction
		valid bool
	}

	rows := make([]parsedRow, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, record := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			tx, err := parseTransaction(record, cols)
			if err != nil {
				return nil // skip invalid records
			}
			rows[i] = parsedRow{tx: tx, valid: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	txs := make([]models.Transaction, 0, len(rows))
	var skipped int64
	for _, row := range rows {
		if !row.valid {
			skipped++
			continue
		}
		txs = append(txs, row.tx)
	}
	return txs, skipped, nil
}

type columnIndex struct {
	date        int
	revenue     int
	country     int
	state       int
	category    int
	subCategory int
	product     int
	quantity    int
	profit      int
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func resolveColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[normalizeColumn(name)] = i
	}

	find := func(names ...string) int {
		for _, name := range names {
			if i, ok := positions[name]; ok {
				return i
			}
		}
		return -1
	}

	cols := columnIndex{
		date:        find("date", "order_date", "transaction_date"),
		revenue:     find("revenue", "total_price", "sales"),
		country:     find("country"),
		state:       find("state", "region"),
		category:    find("product_category", "category"),
		subCategory: find("sub_category", "subcategory"),
		product:     find("product", "product_name"),
		quantity:    find("order_quantity", "quantity"),
		profit:      find("profit"),
	}

	if cols.date < 0 {
		return cols, fmt.Errorf("%w: Date", ErrMissingColumn)
	}
	if cols.revenue < 0 {
		return cols, fmt.Errorf("%w: Revenue", ErrMissingColumn)
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseTransaction(record []string, cols columnIndex) (models.Transaction, error) {
	if cols.date >= len(record) || cols.revenue >= len(record) {
		return models.Transaction{}, fmt.Errorf("insufficient columns")
	}

	date, err := parseDate(field(record, cols.date))
	if err != nil {
		return models.Transaction{}, err
	}

	revenue, err := strconv.ParseFloat(field(record, cols.revenue), 64)
	if err != nil {
		return models.Transaction{}, err
	}

	var profit float64
	if s := field(record, cols.profit); s != "" {
		if profit, err = strconv.ParseFloat(s, 64); err != nil {
			return models.Transaction{}, err
		}
	}

	var quantity int
	if s := field(record, cols.quantity); s != "" {
		if quantity, err = strconv.Atoi(s); err != nil {
			return models.Transaction{}, err
		}
	}

	return models.Transaction{
		Date:        date,
		Country:     field(record, cols.country),
		State:       field(record, cols.state),
		Category:    field(record, cols.category),
		SubCategory: field(record, cols.subCategory),
		Product:     field(record, cols.product),
		Quantity:    quantity,
		Revenue:     revenue,
		Profit:      profit,
	}, nil
}

func computeSummary(txs []models.Transaction) Summary {
	categories := make(map[string]*models.CategoryRevenue)
	countries := make(map[string]float64)
	subCategories := make(map[string]*models.SubCategoryProfit)
	pivot := make(map[time.Month]map[int]float64)
	years := make(map[int]struct{})

	var kpis models.KPIs
	for _, tx := range txs {
		kpis.TotalRevenue += tx.Revenue
		kpis.TotalProfit += tx.Profit
		kpis.Orders++

		if categories[tx.Category] == nil {
			categories[tx.Category] = &models.CategoryRevenue{Category: tx.Category}
		}
		categories[tx.Category].Revenue += tx.Revenue
		categories[tx.Category].Orders++

		countries[tx.Country] += tx.Revenue

		if subCategories[tx.SubCategory] == nil {
			subCategories[tx.SubCategory] = &models.SubCategoryProfit{
				SubCategory: tx.SubCategory,
				Category:    tx.Category,
			}
		}
		subCategories[tx.SubCategory].Profit += tx.Profit

		month, year := tx.Date.Month(), tx.Date.Year()
		if pivot[month] == nil {
			pivot[month] = make(map[int]float64)
		}
		pivot[month][year] += tx.Revenue
		years[year] = struct{}{}
	}
	if kpis.Orders > 0 {
		kpis.AverageOrderValue = kpis.TotalRevenue / float64(kpis.Orders)
	}

	return Summary{
		KPIs:              kpis,
		RevenueByCategory: sortCategoryRevenue(categories),
		RevenueByCountry:  sortCountryRevenue(countries, kpis.TotalRevenue),
		SubCategoryProfit: sortSubCategoryProfit(subCategories),
		MonthlyPivot:      buildMonthlyPivot(pivot),
		MonthlySales:      forecast.MonthlySeries(txs),
		Years:             sortedKeys(years),
	}
}

func computeFacets(txs []models.Transaction) Facets {
	years := make(map[int]struct{})
	countries := make(map[string]struct{})
	categories := make(map[string]struct{})
	for _, tx := range txs {
		years[tx.Date.Year()] = struct{}{}
		if tx.Country != "" {
			countries[tx.Country] = struct{}{}
		}
		if tx.Category != "" {
			categories[tx.Category] = struct{}{}
		}
	}
	return Facets{
		Years:      sortedKeys(years),
		Countries:  sortedKeys(countries),
		Categories: sortedKeys(categories),
	}
}

func sortedKeys[K int | string](m map[K]struct{}) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func byValueDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func sortCategoryRevenue(groups map[string]*models.CategoryRevenue) []models.CategoryRevenue {
	result := make([]models.CategoryRevenue, 0, len(groups))
	for _, cr := range groups {
		result = append(result, *cr)
	}
	slices.SortFunc(result, func(a, b models.CategoryRevenue) int {
		if c := byValueDesc(a.Revenue, b.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return result
}

func sortCountryRevenue(groups map[string]float64, total float64) []models.CountryRevenue {
	result := make([]models.CountryRevenue, 0, len(groups))
	for country, revenue := range groups {
		cr := models.CountryRevenue{Country: country, Revenue: revenue}
		if total != 0 {
			cr.Share = revenue / total * 100
		}
		result = append(result, cr)
	}
	slices.SortFunc(result, func(a, b models.CountryRevenue) int {
		if c := byValueDesc(a.Revenue, b.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Country, b.Country)
	})
	return result
}

func sortSubCategoryProfit(groups map[string]*models.SubCategoryProfit) []models.SubCategoryProfit {
	result := make([]models.SubCategoryProfit, 0, len(groups))
	for _, sp := range groups {
		result = append(result, *sp)
	}
	slices.SortFunc(result, func(a, b models.SubCategoryProfit) int {
		if c := byValueDesc(a.Profit, b.Profit); c != 0 {
			return c
		}
		return strings.Compare(a.SubCategory, b.SubCategory)
	})
	return result
}

// buildMonthlyPivot always returns twelve rows in calendar order.
func buildMonthlyPivot(pivot map[time.Month]map[int]float64) []models.MonthlyPivotRow {
	rows := make([]models.MonthlyPivotRow, 12)
	for i, name := range monthNames {
		byYear := pivot[time.Month(i+1)]
		if byYear == nil {
			byYear = map[int]float64{}
		}
		rows[i] = models.MonthlyPivotRow{Month: name, ByYear: byYear}
	}
	return rows
}

// Cache management
func (a *Analytics) getCacheFilename(csvPath string) string {
	return fmt.Sprintf("%s/%s_%s.gob", cacheDir, strings.ReplaceAll(csvPath, "/", "_"), cacheVersion)
}

func (a *Analytics) saveToCache(csvPath string) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	filename := a.getCacheFilename(csvPath)
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	a.mu.RLock()
	defer a.mu.RUnlock()

	encoder := gob.NewEncoder(file)
	return encoder.Encode(a.precomputed)
}

func (a *Analytics) loadFromCache(csvPath string) (*PrecomputedData, error) {
	filename := a.getCacheFilename(csvPath)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data PrecomputedData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, err
	}

	return &data, nil
}

// summary returns the precomputed aggregates for the zero filter and computes
// the filtered ones on demand.
func (a *Analytics) summary(f Filter) Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if f.IsZero() {
		return a.precomputed.Summary
	}

	filtered := make([]models.Transaction, 0)
	for _, tx := range a.precomputed.Transactions {
		if f.Match(tx) {
			filtered = append(filtered, tx)
		}
	}
	return computeSummary(filtered)
}

func (a *Analytics) Summary(f Filter) Summary {
	return a.summary(f)
}

func (a *Analytics) KPIs(f Filter) models.KPIs {
	return a.summary(f).KPIs
}

func (a *Analytics) RevenueByCategory(f Filter) []models.CategoryRevenue {
	return a.summary(f).RevenueByCategory
}

func (a *Analytics) RevenueByCountry(f Filter) []models.CountryRevenue {
	return a.summary(f).RevenueByCountry
}

func (a *Analytics) TopProfitableSubCategories(f Filter, limit int) []models.SubCategoryProfit {
	all := a.summary(f).SubCategoryProfit
	if limit < 0 || len(all) <= limit {
		return all
	}
	return all[:limit]
}

func (a *Analytics) MonthlyPivot(f Filter) []models.MonthlyPivotRow {
	return a.summary(f).MonthlyPivot
}

func (a *Analytics) MonthlySales(f Filter) []models.MonthlyRevenue {
	return a.summary(f).MonthlySales
}

func (a *Analytics) Facets() Facets {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Facets
}

// Transactions returns a copy of the full, unfiltered table together with the
// dataset version it belongs to.
func (a *Analytics) Transactions() ([]models.Transaction, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.precomputed.Transactions), a.version.Load()
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"source":         a.csvPath,
		"record_count":   a.precomputed.RecordCount,
		"skipped_rows":   a.precomputed.SkippedRows,
		"last_processed": a.precomputed.LastModified,
		"categories":     len(a.precomputed.Summary.RevenueByCategory),
		"countries":      len(a.precomputed.Summary.RevenueByCountry),
		"months":         len(a.precomputed.Summary.MonthlySales),
		"years":          len(a.precomputed.Summary.Years),
		"version":        a.version.Load(),
	}
}
