package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/services"
)

var kpiTemplate = template.Must(template.New("kpiStrip").Parse(`
<div id="kpi-strip" class="kpi-grid">
<div class="kpi-card"><div class="kpi-title">Total Sales</div><div class="kpi-value">${{printf "%.0f" .TotalSales}}</div></div>
<div class="kpi-card"><div class="kpi-title">Total Profit</div><div class="kpi-value">${{printf "%.0f" .TotalProfit}}</div></div>
<div class="kpi-card"><div class="kpi-title">Profit Margin</div><div class="kpi-value">{{printf "%.1f" .MarginPct}}%</div></div>
<div class="kpi-card"><div class="kpi-title">Orders</div><div class="kpi-value">{{.Orders}}</div></div>
<div class="kpi-card"><div class="kpi-title">AOV</div><div class="kpi-value">${{printf "%.0f" .AvgOrderValue}}</div></div>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type kpiView struct {
	TotalSales    float64
	TotalProfit   float64
	MarginPct     float64
	Orders        int
	AvgOrderValue float64
}

func (h *SSEHandlers) renderKPIStrip(summary models.KPISummary) (string, error) {
	var buf strings.Builder
	err := kpiTemplate.Execute(&buf, kpiView{
		TotalSales:    summary.TotalSales,
		TotalProfit:   summary.TotalProfit,
		MarginPct:     summary.Margin * 100,
		Orders:        summary.Orders,
		AvgOrderValue: summary.AvgOrderValue,
	})
	return buf.String(), err
}

// HandleViews is the filter-change callback: the page pushes its filter
// signals, the handler recomputes the bundle and patches every chart signal
// plus the rendered KPI strip in one response.
func (h *SSEHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	var sel models.FilterSelection
	if err := datastar.ReadSignals(r, &sel); err != nil {
		// First load carries no signals yet; fall back to the unfiltered view.
		h.logger.Debug("no filter signals in request", "error", err)
	}

	sse := datastar.NewSSE(w, r)

	bundle := h.analytics.ComputeViews(sel)

	html, err := h.renderKPIStrip(bundle.Summary)
	if err != nil {
		h.logger.Error("render kpi strip", "error", err)
		return
	}
	sse.PatchElements(html)

	signals, err := json.Marshal(map[string]any{
		"monthlyTrend":    bundle.MonthlyTrend,
		"states":          bundle.States,
		"subCategories":   bundle.SubCategories,
		"discountBuckets": bundle.DiscountBuckets,
		"shipModes":       bundle.ShipModes,
	})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleFilters patches the dropdown option signals on page load.
func (h *SSEHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	options := h.analytics.FilterOptions()
	signals, err := json.Marshal(map[string]any{
		"filterOptions": options,
	})
	if err != nil {
		h.logger.Error("marshal filter options", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
