package services

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"superstore-dashboard/internal/models"
)

// maxCacheEntries bounds the per-selection bundle cache. The filter space is
// small (years x regions x segments x categories) so in practice the cache
// converges to one entry per selection ever requested.
const maxCacheEntries = 256

// Analytics owns the cleaned dataset. The dataset is loaded once, never
// mutated afterwards, and shared read-only across all view computations, so
// concurrent requests need no coordination beyond the cache lock.
type Analytics struct {
	mu         sync.RWMutex
	dataset    []models.Order
	options    models.FilterOptions
	cache      map[string]*models.AggregateBundle
	lastLoaded time.Time
	logger     *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		cache:  make(map[string]*models.AggregateBundle),
		logger: slog.Default(),
	}
}

// SetData replaces the dataset, rebuilds the filter options and resets the
// bundle cache.
func (a *Analytics) SetData(orders []models.Order) {
	options := buildFilterOptions(orders)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataset = orders
	a.options = options
	a.cache = make(map[string]*models.AggregateBundle)
	a.lastLoaded = time.Now()
}

// FilterOptions returns the dropdown choices derived from the dataset.
func (a *Analytics) FilterOptions() models.FilterOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// ComputeViews applies the filter selection and recomputes the aggregate
// bundle. It is a pure function of (dataset, selection) and never fails: an
// empty subset yields empty tables and zero KPIs. Results are memoized per
// normalized selection, which is sound because the dataset is immutable.
func (a *Analytics) ComputeViews(sel models.FilterSelection) *models.AggregateBundle {
	sel = normalize(sel)
	key := selectionKey(sel)

	a.mu.RLock()
	cached, ok := a.cache[key]
	dataset := a.dataset
	a.mu.RUnlock()
	if ok {
		return cached
	}

	subset := filter(dataset, sel)
	bundle := computeBundle(subset)

	a.mu.Lock()
	if len(a.cache) >= maxCacheEntries {
		a.cache = make(map[string]*models.AggregateBundle)
	}
	a.cache[key] = bundle
	a.mu.Unlock()

	return bundle
}

// Stats exposes dataset metadata for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":   len(a.dataset),
		"years":          optionCount(a.options.Years),
		"regions":        optionCount(a.options.Regions),
		"segments":       optionCount(a.options.Segments),
		"categories":     optionCount(a.options.Categories),
		"cached_bundles": len(a.cache),
		"last_loaded":    a.lastLoaded,
	}
}

func optionCount(options []string) int {
	if len(options) == 0 {
		return 0
	}
	return len(options) - 1 // minus the "All" entry
}

func normalize(sel models.FilterSelection) models.FilterSelection {
	norm := func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return models.AllValue
		}
		return v
	}
	return models.FilterSelection{
		Year:     norm(sel.Year),
		Region:   norm(sel.Region),
		Segment:  norm(sel.Segment),
		Category: norm(sel.Category),
	}
}

func selectionKey(sel models.FilterSelection) string {
	return sel.Year + "|" + sel.Region + "|" + sel.Segment + "|" + sel.Category
}

// filter keeps rows whose fields equal every non-"All" component. The
// subset preserves dataset order, which is what makes ranking ties stable.
func filter(dataset []models.Order, sel models.FilterSelection) []models.Order {
	subset := make([]models.Order, 0, len(dataset))
	for _, o := range dataset {
		if sel.Year != models.AllValue && strconv.Itoa(o.Year) != sel.Year {
			continue
		}
		if sel.Region != models.AllValue && o.Region != sel.Region {
			continue
		}
		if sel.Segment != models.AllValue && o.Segment != sel.Segment {
			continue
		}
		if sel.Category != models.AllValue && o.Category != sel.Category {
			continue
		}
		subset = append(subset, o)
	}
	return subset
}

// computeBundle runs the chart aggregations over the filtered subset. The
// views are independent, so they run concurrently; each goroutine only reads
// the shared subset and writes its own bundle field.
func computeBundle(subset []models.Order) *models.AggregateBundle {
	bundle := &models.AggregateBundle{}

	var g errgroup.Group
	g.Go(func() error { bundle.Summary = computeSummary(subset); return nil })
	g.Go(func() error { bundle.MonthlyTrend = computeMonthlyTrend(subset); return nil })
	g.Go(func() error { bundle.States = computeStates(subset); return nil })
	g.Go(func() error { bundle.SubCategories = computeSubCategories(subset); return nil })
	g.Go(func() error { bundle.DiscountBuckets = computeDiscountBuckets(subset); return nil })
	g.Go(func() error { bundle.ShipModes = computeShipModes(subset); return nil })
	_ = g.Wait()

	return bundle
}

func computeSummary(subset []models.Order) models.KPISummary {
	var summary models.KPISummary
	orderIDs := make(map[string]struct{}, len(subset))

	for _, o := range subset {
		summary.TotalSales += o.Sales
		summary.TotalProfit += o.Profit
		orderIDs[o.OrderID] = struct{}{}
	}

	summary.Orders = len(orderIDs)
	// Undefined ratios are reported as zero, never computed.
	if summary.TotalSales > 0 {
		summary.Margin = summary.TotalProfit / summary.TotalSales
	}
	if summary.Orders > 0 {
		summary.AvgOrderValue = summary.TotalSales / float64(summary.Orders)
	}
	return summary
}

func computeMonthlyTrend(subset []models.Order) []models.MonthlyPoint {
	groups := make(map[string]*models.MonthlyPoint)
	for _, o := range subset {
		p := groups[o.Month]
		if p == nil {
			p = &models.MonthlyPoint{Month: o.Month}
			groups[o.Month] = p
		}
		p.Sales += o.Sales
		p.Profit += o.Profit
	}

	result := make([]models.MonthlyPoint, 0, len(groups))
	for _, p := range groups {
		result = append(result, *p)
	}
	// "2006-01" keys sort chronologically as strings.
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result
}

func computeStates(subset []models.Order) []models.StateRevenue {
	index := make(map[string]int, 16)
	result := make([]models.StateRevenue, 0, 16)

	for _, o := range subset {
		i, ok := index[o.State]
		if !ok {
			i = len(result)
			index[o.State] = i
			result = append(result, models.StateRevenue{State: o.State, StateAbbr: o.StateAbbr})
		}
		result[i].Sales += o.Sales
		result[i].Profit += o.Profit
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Profit > result[j].Profit })
	return result
}

func computeSubCategories(subset []models.Order) []models.SubCategoryProfit {
	index := make(map[string]int, 16)
	result := make([]models.SubCategoryProfit, 0, 16)

	for _, o := range subset {
		i, ok := index[o.SubCategory]
		if !ok {
			i = len(result)
			index[o.SubCategory] = i
			result = append(result, models.SubCategoryProfit{SubCategory: o.SubCategory})
		}
		result[i].Sales += o.Sales
		result[i].Profit += o.Profit
	}

	// Ranking chart: profit descending, ties keep first appearance.
	sort.SliceStable(result, func(i, j int) bool { return result[i].Profit > result[j].Profit })
	return result
}

// bucketOrder is the canonical left-to-right axis of the discount chart.
var bucketOrder = []string{"No Discount", "Low (0-20%)", "Medium (20-40%)", "High (40%+)", "Unknown"}

func computeDiscountBuckets(subset []models.Order) []models.DiscountBucketMargin {
	groups := make(map[string]*models.DiscountBucketMargin, len(bucketOrder))
	for _, o := range subset {
		b := groups[o.DiscountBucket]
		if b == nil {
			b = &models.DiscountBucketMargin{Bucket: o.DiscountBucket}
			groups[o.DiscountBucket] = b
		}
		b.Sales += o.Sales
		b.Profit += o.Profit
	}

	result := make([]models.DiscountBucketMargin, 0, len(groups))
	for _, bucket := range bucketOrder {
		b := groups[bucket]
		if b == nil {
			continue
		}
		if b.Sales > 0 {
			b.Margin = b.Profit / b.Sales
		}
		result = append(result, *b)
	}
	return result
}

func computeShipModes(subset []models.Order) []models.ShipModeBreakdown {
	index := make(map[string]int, 8)
	orderIDs := make(map[string]map[string]struct{}, 8)
	result := make([]models.ShipModeBreakdown, 0, 8)

	for _, o := range subset {
		i, ok := index[o.ShipMode]
		if !ok {
			i = len(result)
			index[o.ShipMode] = i
			orderIDs[o.ShipMode] = make(map[string]struct{})
			result = append(result, models.ShipModeBreakdown{ShipMode: o.ShipMode})
		}
		result[i].Profit += o.Profit
		orderIDs[o.ShipMode][o.OrderID] = struct{}{}
	}

	for i := range result {
		n := len(orderIDs[result[i].ShipMode])
		result[i].Orders = n
		if n > 0 {
			result[i].ProfitPerOrder = result[i].Profit / float64(n)
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Profit > result[j].Profit })
	return result
}

func buildFilterOptions(orders []models.Order) models.FilterOptions {
	years := make(map[string]struct{})
	regions := make(map[string]struct{})
	segments := make(map[string]struct{})
	categories := make(map[string]struct{})

	for _, o := range orders {
		if o.Year != 0 {
			years[strconv.Itoa(o.Year)] = struct{}{}
		}
		if o.Region != "" {
			regions[o.Region] = struct{}{}
		}
		if o.Segment != "" {
			segments[o.Segment] = struct{}{}
		}
		if o.Category != "" {
			categories[o.Category] = struct{}{}
		}
	}

	return models.FilterOptions{
		Years:      withAll(years),
		Regions:    withAll(regions),
		Segments:   withAll(segments),
		Categories: withAll(categories),
	}
}

func withAll(values map[string]struct{}) []string {
	sorted := make([]string, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)
	return append([]string{models.AllValue}, sorted...)
}
