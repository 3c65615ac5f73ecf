package services

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"superstore-dashboard/internal/cleaner"
	"superstore-dashboard/internal/models"
)

func order(id string, date time.Time, region, state, segment, category, subCategory, shipMode string, sales, profit, discount float64, quantity int) models.Order {
	o := models.Order{
		OrderID:     id,
		OrderDate:   date,
		ShipMode:    shipMode,
		Region:      region,
		State:       state,
		Segment:     segment,
		Category:    category,
		SubCategory: subCategory,
		Sales:       sales,
		Profit:      profit,
		Discount:    discount,
		Quantity:    quantity,
		Year:        date.Year(),
		Month:       date.Format("2006-01"),
	}
	if sales > 0 {
		o.Margin = profit / sales
		o.HasMargin = true
	}
	o.DiscountBucket = cleaner.DiscountBucket(discount)
	o.StateAbbr = StateAbbr(state)
	return o
}

func testOrders() []models.Order {
	return []models.Order{
		order("O1", time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "Second Class", 100, 10, 0.1, 2),
		order("O2", time.Date(2017, 2, 10, 0, 0, 0, 0, time.UTC), "East", "New York", "Consumer", "Furniture", "Chairs", "First Class", 200, -20, 0.5, 3),
		order("O3", time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC), "West", "Washington", "Corporate", "Technology", "Phones", "Second Class", 300, 60, 0, 1),
		order("O4", time.Date(2018, 1, 15, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Technology", "Accessories", "Standard Class", 50, 5, 0.2, 1),
	}
}

func newTestAnalytics() *Analytics {
	a := NewAnalytics()
	a.SetData(testOrders())
	return a
}

func TestAnalytics_FilterSemantics(t *testing.T) {
	a := newTestAnalytics()

	tests := []struct {
		name       string
		sel        models.FilterSelection
		wantOrders int
	}{
		{"all", models.FilterSelection{}, 4},
		{"explicit all", models.FilterSelection{Year: "All", Region: "All", Segment: "All", Category: "All"}, 4},
		{"year only", models.FilterSelection{Year: "2017"}, 3},
		{"region only", models.FilterSelection{Region: "West"}, 3},
		{"year and region", models.FilterSelection{Year: "2017", Region: "West"}, 2},
		{"segment", models.FilterSelection{Segment: "Corporate"}, 1},
		{"category", models.FilterSelection{Category: "Furniture"}, 2},
		{"all components", models.FilterSelection{Year: "2017", Region: "West", Segment: "Consumer", Category: "Furniture"}, 1},
		{"no match", models.FilterSelection{Region: "South"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := a.ComputeViews(tt.sel)
			if bundle.Summary.Orders != tt.wantOrders {
				t.Errorf("orders = %d, want %d", bundle.Summary.Orders, tt.wantOrders)
			}
		})
	}
}

func TestAnalytics_KnownDataset(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Furniture", "Second Class", 100, 10, 0.1, 1),
		order("O2", time.Date(2017, 2, 10, 0, 0, 0, 0, time.UTC), "East", "New York", "Consumer", "Furniture", "Furniture", "First Class", 200, -20, 0.5, 1),
	})

	bundle := a.ComputeViews(models.FilterSelection{Year: "2017", Region: "All"})

	wantTrend := []models.MonthlyPoint{
		{Month: "2017-01", Sales: 100, Profit: 10},
		{Month: "2017-02", Sales: 200, Profit: -20},
	}
	if len(bundle.MonthlyTrend) != len(wantTrend) {
		t.Fatalf("trend length = %d, want %d", len(bundle.MonthlyTrend), len(wantTrend))
	}
	for i, want := range wantTrend {
		if bundle.MonthlyTrend[i] != want {
			t.Errorf("trend[%d] = %+v, want %+v", i, bundle.MonthlyTrend[i], want)
		}
	}

	// Both rows share the sub-category, so the ranking collapses to one
	// entry with the summed profit.
	if len(bundle.SubCategories) != 1 {
		t.Fatalf("sub-category count = %d, want 1", len(bundle.SubCategories))
	}
	if got := bundle.SubCategories[0].Profit; got != -10 {
		t.Errorf("sub-category profit = %f, want -10", got)
	}
}

func TestAnalytics_MonthlyTrendChronological(t *testing.T) {
	a := NewAnalytics()
	// Deliberately out of chronological order.
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 10, 1, 0, 1),
		order("O2", time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 20, 2, 0, 1),
		order("O3", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 30, 3, 0, 1),
		order("O4", time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 40, 4, 0, 1),
	})

	bundle := a.ComputeViews(models.FilterSelection{Year: "2017"})

	for _, p := range bundle.MonthlyTrend {
		if p.Month < "2017-01" || p.Month > "2017-12" {
			t.Errorf("month %q outside filtered year", p.Month)
		}
	}
	for i := 1; i < len(bundle.MonthlyTrend); i++ {
		if bundle.MonthlyTrend[i-1].Month >= bundle.MonthlyTrend[i].Month {
			t.Errorf("trend not chronological: %q before %q",
				bundle.MonthlyTrend[i-1].Month, bundle.MonthlyTrend[i].Month)
		}
	}
}

func TestAnalytics_RankingOrderAndTies(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Tables", "First Class", 10, 5, 0, 1),
		order("O2", time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 10, 5, 0, 1),
		order("O3", time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Bookcases", "First Class", 10, 50, 0, 1),
	})

	bundle := a.ComputeViews(models.FilterSelection{})

	want := []string{"Bookcases", "Tables", "Chairs"}
	if len(bundle.SubCategories) != len(want) {
		t.Fatalf("sub-category count = %d, want %d", len(bundle.SubCategories), len(want))
	}
	for i, name := range want {
		if bundle.SubCategories[i].SubCategory != name {
			t.Errorf("rank %d = %q, want %q (profit desc, ties in dataset order)",
				i, bundle.SubCategories[i].SubCategory, name)
		}
	}
}

func TestAnalytics_AggregationConsistency(t *testing.T) {
	a := newTestAnalytics()

	selections := []models.FilterSelection{
		{},
		{Year: "2017"},
		{Region: "West"},
		{Year: "2017", Region: "West", Segment: "Consumer"},
		{Region: "South"}, // empty subset
	}

	for _, sel := range selections {
		bundle := a.ComputeViews(sel)

		var fromSubCats, fromStates, fromMonths float64
		for _, s := range bundle.SubCategories {
			fromSubCats += s.Profit
		}
		for _, s := range bundle.States {
			fromStates += s.Profit
		}
		for _, p := range bundle.MonthlyTrend {
			fromMonths += p.Profit
		}

		total := bundle.Summary.TotalProfit
		for name, got := range map[string]float64{
			"sub-categories": fromSubCats,
			"states":         fromStates,
			"months":         fromMonths,
		} {
			if math.Abs(got-total) > 1e-9 {
				t.Errorf("selection %+v: %s profit sum %f != total %f", sel, name, got, total)
			}
		}
	}
}

func TestAnalytics_EmptySubset(t *testing.T) {
	a := newTestAnalytics()

	bundle := a.ComputeViews(models.FilterSelection{Region: "Nowhere"})

	if bundle.Summary.Orders != 0 || bundle.Summary.TotalSales != 0 {
		t.Errorf("empty subset should have zero KPIs, got %+v", bundle.Summary)
	}
	// Undefined ratios come back as zero, never as NaN or a panic.
	if bundle.Summary.Margin != 0 || bundle.Summary.AvgOrderValue != 0 {
		t.Errorf("empty subset ratios should be zero, got margin=%f aov=%f",
			bundle.Summary.Margin, bundle.Summary.AvgOrderValue)
	}
	if len(bundle.MonthlyTrend) != 0 || len(bundle.States) != 0 ||
		len(bundle.SubCategories) != 0 || len(bundle.DiscountBuckets) != 0 ||
		len(bundle.ShipModes) != 0 {
		t.Error("empty subset should produce empty tables")
	}
}

func TestAnalytics_KPISummary(t *testing.T) {
	a := NewAnalytics()
	// Two rows of the same order: distinct order count must be 1.
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 100, 10, 0, 1),
		order("O1", time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Tables", "First Class", 60, 6, 0, 1),
	})

	summary := a.ComputeViews(models.FilterSelection{}).Summary

	if summary.Orders != 1 {
		t.Errorf("orders = %d, want 1 (distinct order ids)", summary.Orders)
	}
	if summary.TotalSales != 160 {
		t.Errorf("total sales = %f, want 160", summary.TotalSales)
	}
	if math.Abs(summary.Margin-0.1) > 1e-9 {
		t.Errorf("margin = %f, want 0.1", summary.Margin)
	}
	if summary.AvgOrderValue != 160 {
		t.Errorf("aov = %f, want 160", summary.AvgOrderValue)
	}
}

func TestAnalytics_DiscountBucketsOrderAndMargin(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 100, 20, 0.5, 1),
		order("O2", time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 100, 10, 0, 1),
	})

	buckets := a.ComputeViews(models.FilterSelection{}).DiscountBuckets

	if len(buckets) != 2 {
		t.Fatalf("bucket count = %d, want 2", len(buckets))
	}
	// Canonical axis order regardless of row order.
	if buckets[0].Bucket != "No Discount" || buckets[1].Bucket != "High (40%+)" {
		t.Errorf("bucket order = [%q %q]", buckets[0].Bucket, buckets[1].Bucket)
	}
	if math.Abs(buckets[0].Margin-0.1) > 1e-9 {
		t.Errorf("no-discount margin = %f, want 0.1", buckets[0].Margin)
	}
}

func TestAnalytics_ShipModeProfitPerOrder(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Order{
		order("O1", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "First Class", 100, 30, 0, 1),
		order("O1", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Tables", "First Class", 100, 10, 0, 1),
		order("O2", time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC), "West", "California", "Consumer", "Furniture", "Chairs", "Second Class", 100, 5, 0, 1),
	})

	modes := a.ComputeViews(models.FilterSelection{}).ShipModes

	if len(modes) != 2 {
		t.Fatalf("ship mode count = %d, want 2", len(modes))
	}
	if modes[0].ShipMode != "First Class" {
		t.Errorf("first mode = %q, want First Class (highest profit)", modes[0].ShipMode)
	}
	if modes[0].Orders != 1 {
		t.Errorf("First Class orders = %d, want 1 (distinct)", modes[0].Orders)
	}
	if modes[0].ProfitPerOrder != 40 {
		t.Errorf("First Class profit per order = %f, want 40", modes[0].ProfitPerOrder)
	}
}

func TestAnalytics_BundleCache(t *testing.T) {
	a := newTestAnalytics()

	first := a.ComputeViews(models.FilterSelection{Year: "2017"})
	second := a.ComputeViews(models.FilterSelection{Year: "2017"})
	if first != second {
		t.Error("identical selections should hit the cache")
	}

	// Normalization: empty components and explicit "All" share a cache key.
	all1 := a.ComputeViews(models.FilterSelection{})
	all2 := a.ComputeViews(models.FilterSelection{Year: "All", Region: "All", Segment: "All", Category: "All"})
	if all1 != all2 {
		t.Error("empty and explicit-All selections should share a cache entry")
	}

	// Reloading the dataset invalidates the cache.
	a.SetData(testOrders())
	third := a.ComputeViews(models.FilterSelection{Year: "2017"})
	if third == first {
		t.Error("SetData should reset the bundle cache")
	}
}

func TestAnalytics_FilterOptions(t *testing.T) {
	a := newTestAnalytics()
	options := a.FilterOptions()

	check := func(name string, got, want []string) {
		if len(got) != len(want) {
			t.Errorf("%s = %v, want %v", name, got, want)
			return
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s = %v, want %v", name, got, want)
				return
			}
		}
	}

	check("years", options.Years, []string{"All", "2017", "2018"})
	check("regions", options.Regions, []string{"All", "East", "West"})
	check("segments", options.Segments, []string{"All", "Consumer", "Corporate"})
	check("categories", options.Categories, []string{"All", "Furniture", "Technology"})
}

func TestAnalytics_LoadFromCSV(t *testing.T) {
	raw := "Order ID,Order Date,Ship Date,Ship Mode,Region,State,Segment,Category,Sub-Category,Sales,Profit,Discount,Quantity\n" +
		"O1,2017-01-05,2017-01-08,Second Class,West,California,Consumer,Furniture,Chairs,100,10,0.1,2\n" +
		"O2,2017-02-10,2017-02-12,First Class,East,New York,Corporate,Technology,Phones,200,-20,0.5,3\n"

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.csv")
	if err := os.WriteFile(rawPath, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	c := cleaner.New(nil)
	result, err := c.Clean(context.Background(), rawPath)
	if err != nil {
		t.Fatalf("Clean() failed: %v", err)
	}
	cleanedPath, _, err := c.WriteOutputs(result, dir)
	if err != nil {
		t.Fatalf("WriteOutputs() failed: %v", err)
	}

	a := NewAnalytics()
	if err := a.LoadFromCSV(context.Background(), cleanedPath); err != nil {
		t.Fatalf("LoadFromCSV() failed: %v", err)
	}

	bundle := a.ComputeViews(models.FilterSelection{})
	if bundle.Summary.Orders != 2 {
		t.Errorf("orders = %d, want 2", bundle.Summary.Orders)
	}
	if bundle.Summary.TotalSales != 300 {
		t.Errorf("total sales = %f, want 300", bundle.Summary.TotalSales)
	}
	if len(bundle.States) != 2 {
		t.Fatalf("state count = %d, want 2", len(bundle.States))
	}
	for _, s := range bundle.States {
		if s.State == "California" && s.StateAbbr != "CA" {
			t.Errorf("California abbr = %q, want CA", s.StateAbbr)
		}
	}
}

func TestAnalytics_LoadFromCSV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty file", ""},
		{"missing columns", "Order ID,Order Date,Sales\nO1,2017-01-05,100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cleaned.csv")
			if err := os.WriteFile(path, []byte(tt.csv), 0644); err != nil {
				t.Fatal(err)
			}

			a := NewAnalytics()
			if err := a.LoadFromCSV(context.Background(), path); err == nil {
				t.Error("LoadFromCSV() should fail")
			}
		})
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := newTestAnalytics()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			_ = a.ComputeViews(models.FilterSelection{Year: "2017"})
			_ = a.ComputeViews(models.FilterSelection{Region: "West"})
			_ = a.FilterOptions()
			_ = a.Stats()
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkAnalytics_ComputeViews(b *testing.B) {
	a := NewAnalytics()
	orders := make([]models.Order, 0, 10000)
	regions := []string{"West", "East", "South", "Central"}
	for i := 0; i < 10000; i++ {
		orders = append(orders, order(
			"O"+string(rune('A'+i%26)),
			time.Date(2015+i%4, time.Month(1+i%12), 1, 0, 0, 0, 0, time.UTC),
			regions[i%4], "California", "Consumer", "Furniture", "Chairs", "First Class",
			float64(i%500), float64(i%100-50), 0.1, 1,
		))
	}
	a.SetData(orders)

	selections := []models.FilterSelection{
		{}, {Year: "2017"}, {Region: "West"}, {Year: "2016", Region: "East"},
	}

	b.ResetTimer()
	for b.Loop() {
		// Rotate selections so the cache does not absorb every iteration.
		a.SetData(orders)
		for _, sel := range selections {
			_ = a.ComputeViews(sel)
		}
	}
}
