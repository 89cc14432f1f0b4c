package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/datsun80zx/tubecost.git/internal/costing"
	"github.com/datsun80zx/tubecost.git/internal/metrics"
)

// Sheet names of the exported workbook
const (
	SheetLines     = "銷貨成本毛利試算"
	SheetItems     = "品項成本比較"
	SheetCustomers = "客戶統計"
)

// TotalLabel marks the grand-total row of the lines sheet
const TotalLabel = "總計"

var lineHeaders = []string{
	"客戶", "物品編號", "品名", "銷貨量", "規格", "米數", "每米成本", "成本", "銷貨金額", "毛利", "毛利率", "備註",
}

var itemHeaders = []string{
	"物品編號", "品名", "筆數", "銷貨量", "米數", "銷貨金額", "成本", "毛利", "平均售價", "平均成本", "毛利率",
}

var customerHeaders = []string{
	"客戶", "筆數", "米數", "銷貨金額", "成本", "毛利", "平均售價", "平均成本", "毛利率", "未計價筆數",
}

// reasonLabels is the note column text for unresolved lines
var reasonLabels = map[costing.Reason]string{
	costing.ReasonNoSpec:         "無法判讀規格",
	costing.ReasonNoCatalogEntry: "查無成本資料",
	costing.ReasonNoExchangeRate: "未設定匯率",
	costing.ReasonUnpriced:       "未計價",
}

// BuildWorkbook lays out the priced lines, item comparison and customer
// statistics of a result as a three-sheet workbook
func BuildWorkbook(result *costing.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetLines); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{SheetItems, SheetCustomers} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating total style: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
		widths  []float64
	}{
		{SheetLines, lineHeaders, lineRows(result), []float64{22, 12, 36, 10, 16, 12, 10, 12, 12, 12, 10, 14}},
		{SheetItems, itemHeaders, itemRows(result.Items), []float64{12, 36, 8, 10, 12, 12, 12, 12, 10, 10, 10}},
		{SheetCustomers, customerHeaders, customerRows(result.Customers), []float64{24, 8, 12, 12, 12, 12, 10, 10, 10, 10}},
	}

	for _, s := range sheets {
		if err := writeTable(f, s.name, s.headers, s.rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
		for i, w := range s.widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetColWidth(s.name, col, col, w)
		}
	}

	// totals row closes the lines sheet
	lastCol, _ := excelize.ColumnNumberToName(len(lineHeaders))
	totalRow := len(result.Lines) + 2
	f.SetCellStyle(SheetLines, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), totalStyle)

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook streams the workbook for result to w
func WriteWorkbook(w io.Writer, result *costing.Result) error {
	f, err := BuildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func lineRows(result *costing.Result) [][]any {
	rows := make([][]any, 0, len(result.Lines)+1)
	for _, l := range result.Lines {
		rows = append(rows, []any{
			customerLabel(l.Customer),
			l.ItemCode,
			l.Name,
			l.Quantity.InexactFloat64(),
			costing.FormatSpecName(l.Spec),
			roundedMeters(l.Meters),
			l.UnitPrice.Round(4).InexactFloat64(),
			roundedMoney(l.Cost),
			roundedMoney(l.Amount),
			roundedMoney(l.Profit),
			FormatPercent(lineMargin(l)),
			reasonLabels[l.Reason],
		})
	}

	t := result.Totals
	rows = append(rows, []any{
		TotalLabel,
		"",
		"",
		t.Quantity.InexactFloat64(),
		"",
		roundedMeters(t.Meters),
		"",
		roundedMoney(t.Cost),
		roundedMoney(t.Amount),
		roundedMoney(t.Profit),
		FormatPercent(t.MarginRate),
		"",
	})
	return rows
}

func itemRows(items []metrics.ItemMetric) [][]any {
	rows := make([][]any, 0, len(items))
	for _, m := range items {
		rows = append(rows, []any{
			m.ItemCode,
			m.Name,
			m.LineCount,
			m.Quantity.InexactFloat64(),
			roundedMeters(m.Meters),
			roundedMoney(m.Amount),
			roundedMoney(m.Cost),
			roundedMoney(m.Profit),
			m.AvgPrice.Round(2).InexactFloat64(),
			m.AvgCost.Round(2).InexactFloat64(),
			FormatPercent(m.MarginRate),
		})
	}
	return rows
}

func customerRows(customers []metrics.CustomerMetric) [][]any {
	rows := make([][]any, 0, len(customers))
	for _, m := range customers {
		rows = append(rows, []any{
			m.Customer,
			m.LineCount,
			roundedMeters(m.Meters),
			roundedMoney(m.Amount),
			roundedMoney(m.Cost),
			roundedMoney(m.Profit),
			m.AvgPrice.Round(2).InexactFloat64(),
			m.AvgCost.Round(2).InexactFloat64(),
			FormatPercent(m.MarginRate),
			m.UnpricedLines,
		})
	}
	return rows
}
