package cleaner

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
)

const (
	batchSize  = 2000
	maxWorkers = 8

	CleanedFileName = "superstore_cleaned.csv"
	ProfileFileName = "profiling_summary.txt"
)

// RequiredColumns are the raw headers the cleaner refuses to run without.
// Matching happens after header normalization.
var RequiredColumns = []string{
	"Order ID", "Order Date", "Ship Date", "Region", "State", "Segment",
	"Category", "Sub-Category", "Sales", "Profit", "Discount", "Quantity",
}

// CleanedColumns is the output header: the semantic raw columns plus the
// derived fields, in a fixed order so repeated runs are byte-identical.
var CleanedColumns = []string{
	"Order ID", "Order Date", "Ship Date", "Ship Mode", "Region", "State",
	"Segment", "Category", "Sub-Category", "Sales", "Profit", "Discount",
	"Quantity", "Year", "Month", "Profit Margin", "Ship Days", "Discount Bucket",
}

var dateLayouts = []string{"2006-01-02", "1/2/2006", "02-01-2006", "1/2/06"}

type Cleaner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Result holds the validated dataset and its profiling summary.
type Result struct {
	Orders  []models.Order
	Profile *Profile
}

// columnIndex maps the normalized required (and optional) headers to their
// position in the raw file.
type columnIndex struct {
	orderID, orderDate, shipDate      int
	shipMode                          int // -1 when absent
	region, state, segment            int
	category, subCategory             int
	sales, profit, discount, quantity int
}

// parsedRow is the outcome of parsing one raw row. Rows are parsed in
// parallel but folded into the result sequentially, so profiling counts and
// output order stay deterministic.
type parsedRow struct {
	blank        bool
	drop         bool
	dropReason   string
	discountNull bool
	clamped      bool
	shipCleared  bool
	nulls        []string
	order        models.Order
}

// Clean reads and validates the raw CSV at inputPath. FileError and
// SchemaError abort the run; row-level problems are dropped or flagged and
// counted into the profile.
func (c *Cleaner) Clean(ctx context.Context, inputPath string) (*Result, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, apperrors.FileWrap(err, fmt.Sprintf("cannot open input file %s", inputPath))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.Schema("input file is empty")
	}
	if err != nil {
		return nil, apperrors.FileWrap(err, "cannot read header row")
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.FileWrap(err, "cannot read input rows")
	}

	parsed := make([]parsedRow, len(records))

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			for i := start; i < end; i++ {
				parsed[i] = parseRow(records[i], cols)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := c.fold(parsed)
	c.logger.Info("cleaning complete",
		"rows_in", result.Profile.RowsIn,
		"rows_out", result.Profile.RowsOut,
		"rows_dropped", result.Profile.RowsDropped,
		"rows_flagged", result.Profile.RowsFlagged,
	)
	return result, nil
}

// fold turns per-row outcomes into the ordered dataset and the profile.
func (c *Cleaner) fold(parsed []parsedRow) *Result {
	profile := newProfile()
	profile.RowsIn = len(parsed)

	orders := make([]models.Order, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	orderIDs := make(map[string]bool, len(parsed))

	for _, p := range parsed {
		if p.blank {
			profile.BlankRows++
			continue
		}
		if p.drop {
			profile.RowsDropped++
			profile.DropReasons[p.dropReason]++
			continue
		}
		if p.clamped {
			profile.RowsFlagged++
			profile.ClampedDiscounts++
		}
		if p.shipCleared {
			profile.RowsFlagged++
			profile.ClearedShipDates++
		}
		for _, col := range p.nulls {
			profile.NullCounts[col]++
		}

		lineKey := p.order.OrderID + "\x00" + p.order.SubCategory
		if seen[lineKey] {
			profile.DuplicateLines++
		}
		seen[lineKey] = true
		orderIDs[p.order.OrderID] = true

		profile.observe(p.order, p.discountNull)
		orders = append(orders, p.order)
	}

	profile.RowsOut = len(orders)
	profile.UniqueOrderIDs = len(orderIDs)
	return &Result{Orders: orders, Profile: profile}
}

// WriteOutputs writes the cleaned CSV and the profiling summary into outdir
// and returns their paths.
func (c *Cleaner) WriteOutputs(result *Result, outdir string) (string, string, error) {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return "", "", apperrors.FileWrap(err, fmt.Sprintf("cannot create output directory %s", outdir))
	}

	cleanedPath := filepath.Join(outdir, CleanedFileName)
	profilePath := filepath.Join(outdir, ProfileFileName)

	if err := writeCleanedCSV(cleanedPath, result.Orders); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(profilePath, []byte(result.Profile.Render()), 0644); err != nil {
		return "", "", apperrors.FileWrap(err, "cannot write profiling summary")
	}

	c.logger.Info("outputs written", "cleaned", cleanedPath, "profile", profilePath)
	return cleanedPath, profilePath, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[NormalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := byName[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, apperrors.Schema(fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	cols := columnIndex{
		orderID:     byName["Order ID"],
		orderDate:   byName["Order Date"],
		shipDate:    byName["Ship Date"],
		shipMode:    -1,
		region:      byName["Region"],
		state:       byName["State"],
		segment:     byName["Segment"],
		category:    byName["Category"],
		subCategory: byName["Sub-Category"],
		sales:       byName["Sales"],
		profit:      byName["Profit"],
		discount:    byName["Discount"],
		quantity:    byName["Quantity"],
	}
	if i, ok := byName["Ship Mode"]; ok {
		cols.shipMode = i
	}
	return cols, nil
}

// NormalizeHeader trims a raw header and collapses inner whitespace.
// "Sub Category" is an alternate spelling seen in dataset mirrors.
func NormalizeHeader(name string) string {
	n := strings.Join(strings.Fields(strings.TrimSpace(name)), " ")
	if n == "Sub Category" {
		return "Sub-Category"
	}
	return n
}

func parseRow(record []string, cols columnIndex) parsedRow {
	if isBlank(record) {
		return parsedRow{blank: true}
	}

	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	orderID := field(cols.orderID)
	rawOrderDate := field(cols.orderDate)
	rawSales := field(cols.sales)
	if orderID == "" || rawOrderDate == "" || rawSales == "" {
		return parsedRow{drop: true, dropReason: "missing_mandatory"}
	}

	orderDate, ok := parseDate(rawOrderDate)
	if !ok {
		return parsedRow{drop: true, dropReason: "bad_order_date"}
	}
	sales, ok := parseCurrency(rawSales)
	if !ok {
		return parsedRow{drop: true, dropReason: "bad_numeric"}
	}
	if sales < 0 {
		return parsedRow{drop: true, dropReason: "negative_sales"}
	}

	p := parsedRow{}
	o := models.Order{
		OrderID:     orderID,
		OrderDate:   orderDate,
		ShipMode:    field(cols.shipMode),
		Region:      field(cols.region),
		State:       field(cols.state),
		Segment:     field(cols.segment),
		Category:    field(cols.category),
		SubCategory: field(cols.subCategory),
		Sales:       sales,
	}

	if raw := field(cols.profit); raw != "" {
		if v, ok := parseCurrency(raw); ok {
			o.Profit = v
		} else {
			p.nulls = append(p.nulls, "Profit")
		}
	} else {
		p.nulls = append(p.nulls, "Profit")
	}

	if raw := field(cols.discount); raw != "" {
		if v, ok := parseCurrency(raw); ok {
			if v < 0 {
				v = 0
				p.clamped = true
			} else if v > 1 {
				v = 1
				p.clamped = true
			}
			o.Discount = v
		} else {
			p.discountNull = true
			p.nulls = append(p.nulls, "Discount")
		}
	} else {
		p.discountNull = true
		p.nulls = append(p.nulls, "Discount")
	}

	if raw := field(cols.quantity); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			if v < 0 {
				v = 0
				p.clamped = true
			}
			o.Quantity = v
		} else {
			p.nulls = append(p.nulls, "Quantity")
		}
	} else {
		p.nulls = append(p.nulls, "Quantity")
	}

	if raw := field(cols.shipDate); raw != "" {
		if d, ok := parseDate(raw); ok {
			if d.Before(orderDate) {
				// Shipping before ordering is impossible; keep the order,
				// lose the ship date.
				p.shipCleared = true
			} else {
				o.ShipDate = d
			}
		} else {
			p.nulls = append(p.nulls, "Ship Date")
		}
	} else {
		p.nulls = append(p.nulls, "Ship Date")
	}

	for _, nc := range []struct{ name, val string }{
		{"Ship Mode", o.ShipMode},
		{"Region", o.Region},
		{"State", o.State},
		{"Segment", o.Segment},
		{"Category", o.Category},
		{"Sub-Category", o.SubCategory},
	} {
		if nc.val == "" {
			p.nulls = append(p.nulls, nc.name)
		}
	}

	derive(&o, p.discountNull)
	p.order = o
	return p
}

// derive fills the helper fields computed from the validated raw values.
func derive(o *models.Order, discountNull bool) {
	o.Year = o.OrderDate.Year()
	o.Month = o.OrderDate.Format("2006-01")

	if o.Sales > 0 {
		o.Margin = o.Profit / o.Sales
		o.HasMargin = true
	}
	if !o.ShipDate.IsZero() {
		o.ShipDays = int(o.ShipDate.Sub(o.OrderDate).Hours() / 24)
		o.HasShipDays = true
	}
	if discountNull {
		o.DiscountBucket = "Unknown"
	} else {
		o.DiscountBucket = DiscountBucket(o.Discount)
	}
}

// DiscountBucket maps a discount fraction onto the reporting buckets used
// by the discount/margin chart.
func DiscountBucket(d float64) string {
	switch {
	case d == 0:
		return "No Discount"
	case d <= 0.20:
		return "Low (0-20%)"
	case d <= 0.40:
		return "Medium (20-40%)"
	default:
		return "High (40%+)"
	}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseCurrency accepts plain floats plus the "$1,234.56" spellings some
// dataset mirrors use.
func parseCurrency(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func writeCleanedCSV(path string, orders []models.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.FileWrap(err, fmt.Sprintf("cannot create %s", path))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CleanedColumns); err != nil {
		return apperrors.FileWrap(err, "cannot write header")
	}

	for _, o := range orders {
		record := []string{
			o.OrderID,
			o.OrderDate.Format("2006-01-02"),
			formatDate(o.ShipDate),
			o.ShipMode,
			o.Region,
			o.State,
			o.Segment,
			o.Category,
			o.SubCategory,
			formatFloat(o.Sales),
			formatFloat(o.Profit),
			formatFloat(o.Discount),
			strconv.Itoa(o.Quantity),
			strconv.Itoa(o.Year),
			o.Month,
			formatMargin(o),
			formatShipDays(o),
			o.DiscountBucket,
		}
		if err := w.Write(record); err != nil {
			return apperrors.FileWrap(err, "cannot write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.FileWrap(err, "cannot flush cleaned CSV")
	}
	return nil
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMargin(o models.Order) string {
	if !o.HasMargin {
		return ""
	}
	return strconv.FormatFloat(o.Margin, 'f', 6, 64)
}

func formatShipDays(o models.Order) string {
	if !o.HasShipDays {
		return ""
	}
	return strconv.Itoa(o.ShipDays)
}
