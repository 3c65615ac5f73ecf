package models

import "time"

// Order is one validated row of the cleaned Superstore dataset.
// The dataset is immutable after load; orders are shared read-only
// across all filter computations.
type Order struct {
	OrderID        string
	OrderDate      time.Time
	ShipDate       time.Time // zero when absent or invalid
	ShipMode       string
	Region         string
	State          string
	Segment        string
	Category       string
	SubCategory    string
	Sales          float64
	Profit         float64
	Discount       float64
	Quantity       int
	Year           int
	Month          string // "2006-01"
	Margin         float64
	HasMargin      bool // false when Sales == 0
	ShipDays       int
	HasShipDays    bool
	DiscountBucket string
	StateAbbr      string
}

// AllValue is the sentinel a filter component takes when it does not
// restrict anything.
const AllValue = "All"

// FilterSelection is the tuple of dashboard filter values for one
// interaction. Empty components are treated as AllValue.
type FilterSelection struct {
	Year     string `json:"year"`
	Region   string `json:"region"`
	Segment  string `json:"segment"`
	Category string `json:"category"`
}

// FilterOptions holds the dropdown choices derived from the dataset,
// each list sorted and prefixed with AllValue.
type FilterOptions struct {
	Years      []string `json:"years"`
	Regions    []string `json:"regions"`
	Segments   []string `json:"segments"`
	Categories []string `json:"categories"`
}

type KPISummary struct {
	TotalSales    float64 `json:"total_sales"`
	TotalProfit   float64 `json:"total_profit"`
	Margin        float64 `json:"margin"`
	Orders        int     `json:"orders"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

type MonthlyPoint struct {
	Month  string  `json:"month"`
	Sales  float64 `json:"sales"`
	Profit float64 `json:"profit"`
}

type StateRevenue struct {
	State     string  `json:"state"`
	StateAbbr string  `json:"state_abbr"`
	Sales     float64 `json:"sales"`
	Profit    float64 `json:"profit"`
}

type SubCategoryProfit struct {
	SubCategory string  `json:"sub_category"`
	Sales       float64 `json:"sales"`
	Profit      float64 `json:"profit"`
}

type DiscountBucketMargin struct {
	Bucket string  `json:"bucket"`
	Sales  float64 `json:"sales"`
	Profit float64 `json:"profit"`
	Margin float64 `json:"margin"`
}

type ShipModeBreakdown struct {
	ShipMode       string  `json:"ship_mode"`
	Profit         float64 `json:"profit"`
	Orders         int     `json:"orders"`
	ProfitPerOrder float64 `json:"profit_per_order"`
}

// AggregateBundle is the full set of chart tables computed for one
// filter selection.
type AggregateBundle struct {
	Summary         KPISummary             `json:"summary"`
	MonthlyTrend    []MonthlyPoint         `json:"monthly_trend"`
	States          []StateRevenue         `json:"states"`
	SubCategories   []SubCategoryProfit    `json:"sub_categories"`
	DiscountBuckets []DiscountBucketMargin `json:"discount_buckets"`
	ShipModes       []ShipModeBreakdown    `json:"ship_modes"`
}
