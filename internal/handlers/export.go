package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandlers streams the aggregate bundle for a filter selection as an
// XLSX workbook, one sheet per view, for handoff into spreadsheet-based BI
// tooling.
type ExportHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewExportHandlers(analytics *services.Analytics, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *ExportHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	bundle := h.analytics.ComputeViews(selectionFromQuery(r))

	f, err := buildWorkbook(bundle)
	if err != nil {
		h.logger.Error("build export workbook", "error", err)
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "export failed"), "")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="superstore_views.xlsx"`)
	if err := f.Write(w); err != nil {
		h.logger.Error("write export workbook", "error", err)
	}
}

func buildWorkbook(bundle *models.AggregateBundle) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, bundle.Summary); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Monthly Trend",
		[]string{"Month", "Sales", "Profit"},
		len(bundle.MonthlyTrend),
		func(i int) []any {
			p := bundle.MonthlyTrend[i]
			return []any{p.Month, p.Sales, p.Profit}
		}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "States",
		[]string{"State", "Abbr", "Sales", "Profit"},
		len(bundle.States),
		func(i int) []any {
			s := bundle.States[i]
			return []any{s.State, s.StateAbbr, s.Sales, s.Profit}
		}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Sub-Categories",
		[]string{"Sub-Category", "Sales", "Profit"},
		len(bundle.SubCategories),
		func(i int) []any {
			s := bundle.SubCategories[i]
			return []any{s.SubCategory, s.Sales, s.Profit}
		}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Discount Buckets",
		[]string{"Bucket", "Sales", "Profit", "Margin"},
		len(bundle.DiscountBuckets),
		func(i int) []any {
			b := bundle.DiscountBuckets[i]
			return []any{b.Bucket, b.Sales, b.Profit, b.Margin}
		}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Ship Modes",
		[]string{"Ship Mode", "Profit", "Orders", "Profit per Order"},
		len(bundle.ShipModes),
		func(i int) []any {
			s := bundle.ShipModes[i]
			return []any{s.ShipMode, s.Profit, s.Orders, s.ProfitPerOrder}
		}); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSummarySheet(f *excelize.File, summary models.KPISummary) error {
	rows := []struct {
		label string
		value any
	}{
		{"Total Sales", summary.TotalSales},
		{"Total Profit", summary.TotalProfit},
		{"Profit Margin", summary.Margin},
		{"Orders", summary.Orders},
		{"Average Order Value", summary.AvgOrderValue},
	}

	for i, row := range rows {
		if err := f.SetCellValue("Summary", fmt.Sprintf("A%d", i+1), row.label); err != nil {
			return err
		}
		if err := f.SetCellValue("Summary", fmt.Sprintf("B%d", i+1), row.value); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows int, row func(int) []any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}

	for i := 0; i < rows; i++ {
		for col, v := range row(i) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
