package compare

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/backend-grocer/internal/pricing"
)

const (
	sheetComparison = "Comparison"
	sheetSummary    = "Summary"
)

// Workbook renders a basket comparison as a spreadsheet: one row per item
// with a price column per vendor, a totals row, and a summary sheet. The
// caller closes the file.
func Workbook(c BasketComparison, currency string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetComparison); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := []any{"Item", "Quantity"}
	for _, v := range c.Priority {
		header = append(header, string(v))
	}
	header = append(header, "Best vendor")
	if err := f.SetSheetRow(sheetComparison, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}

	row := 2
	for _, line := range c.Items {
		values := []any{line.Name, line.Quantity}
		for _, v := range c.Priority {
			if p, ok := line.Prices[v]; ok {
				values = append(values, major(p))
			} else {
				values = append(values, "-")
			}
		}
		values = append(values, string(line.BestVendor))
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetComparison, cell, &values); err != nil {
			_ = f.Close()
			return nil, err
		}
		row++
	}

	totals := []any{"Total (single vendor)", ""}
	for _, v := range c.Priority {
		if t, ok := c.SingleVendorTotals[v]; ok {
			totals = append(totals, major(t))
		} else {
			totals = append(totals, "incomplete")
		}
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetComparison, cell, &totals); err != nil {
		_ = f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		_ = f.Close()
		return nil, err
	}
	summary := [][]any{
		{"Currency", currency},
		{"Optimal split total", major(c.OptimalSplitTotal)},
		{"Savings", major(c.Savings)},
		{"Cheapest single vendor", string(c.CheapestVendor)},
		{"Cheapest single vendor total", major(c.CheapestVendorTotal)},
		{"Basket version", c.BasketVersion},
	}
	for i, values := range summary {
		if err := f.SetSheetRow(sheetSummary, fmt.Sprintf("A%d", i+1), &values); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func major(m pricing.Money) float64 {
	return float64(m) / 100
}
