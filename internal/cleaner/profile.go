package cleaner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"superstore-dashboard/internal/models"
)

// NumericStats accumulates min/max/mean for one numeric column.
type NumericStats struct {
	Count int
	Min   float64
	Max   float64
	Sum   float64
}

func (s *NumericStats) add(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.Count++
}

func (s NumericStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Profile is the human-readable cleaning summary. It is written next to the
// cleaned CSV and is not parsed by anything downstream.
type Profile struct {
	RowsIn           int
	RowsOut          int
	BlankRows        int
	RowsDropped      int
	RowsFlagged      int
	ClampedDiscounts int
	ClearedShipDates int
	DuplicateLines   int
	UniqueOrderIDs   int

	DropReasons map[string]int
	NullCounts  map[string]int

	OrderDateMin time.Time
	OrderDateMax time.Time

	Sales    NumericStats
	Profit   NumericStats
	Discount NumericStats
	Quantity NumericStats
}

func newProfile() *Profile {
	return &Profile{
		DropReasons: make(map[string]int),
		NullCounts:  make(map[string]int),
	}
}

func (p *Profile) observe(o models.Order, discountNull bool) {
	if p.OrderDateMin.IsZero() || o.OrderDate.Before(p.OrderDateMin) {
		p.OrderDateMin = o.OrderDate
	}
	if p.OrderDateMax.IsZero() || o.OrderDate.After(p.OrderDateMax) {
		p.OrderDateMax = o.OrderDate
	}

	p.Sales.add(o.Sales)
	p.Profit.add(o.Profit)
	if !discountNull {
		p.Discount.add(o.Discount)
	}
	p.Quantity.add(float64(o.Quantity))
}

// Render produces the profiling summary text. Map sections are emitted in
// sorted key order so repeated runs write identical files.
func (p *Profile) Render() string {
	var b strings.Builder

	b.WriteString("Superstore Profiling Summary\n")
	b.WriteString("============================\n\n")

	fmt.Fprintf(&b, "rows_in: %d\n", p.RowsIn)
	fmt.Fprintf(&b, "blank_rows: %d\n", p.BlankRows)
	fmt.Fprintf(&b, "rows_dropped: %d\n", p.RowsDropped)
	fmt.Fprintf(&b, "rows_flagged: %d\n", p.RowsFlagged)
	fmt.Fprintf(&b, "rows_out: %d\n", p.RowsOut)
	fmt.Fprintf(&b, "clamped_discounts: %d\n", p.ClampedDiscounts)
	fmt.Fprintf(&b, "cleared_ship_dates: %d\n", p.ClearedShipDates)
	fmt.Fprintf(&b, "duplicate_order_line_rows: %d\n", p.DuplicateLines)
	fmt.Fprintf(&b, "unique_order_ids: %d\n", p.UniqueOrderIDs)
	if !p.OrderDateMin.IsZero() {
		fmt.Fprintf(&b, "order_date_min: %s\n", p.OrderDateMin.Format("2006-01-02"))
		fmt.Fprintf(&b, "order_date_max: %s\n", p.OrderDateMax.Format("2006-01-02"))
	}

	if len(p.DropReasons) > 0 {
		b.WriteString("\nDrop reasons:\n")
		for _, k := range sortedKeys(p.DropReasons) {
			fmt.Fprintf(&b, "%s: %d\n", k, p.DropReasons[k])
		}
	}

	if len(p.NullCounts) > 0 {
		b.WriteString("\nNull counts:\n")
		for _, k := range sortedKeys(p.NullCounts) {
			fmt.Fprintf(&b, "%s: %d\n", k, p.NullCounts[k])
		}
	}

	b.WriteString("\nNumeric columns (min / max / mean):\n")
	writeStats(&b, "Sales", p.Sales)
	writeStats(&b, "Profit", p.Profit)
	writeStats(&b, "Discount", p.Discount)
	writeStats(&b, "Quantity", p.Quantity)

	return b.String()
}

func writeStats(b *strings.Builder, name string, s NumericStats) {
	fmt.Fprintf(b, "%s: %.4f / %.4f / %.4f\n", name, s.Min, s.Max, s.Mean())
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
