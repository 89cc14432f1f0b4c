package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func ledgerGrid() [][]string {
	return [][]string{
		{"銷貨明細表"},
		{"日期: 2026/09/01 ~ 2026/09/30"},
		{"物品 編號", "品  名", "銷貨量", "單位", "銷貨金額"},
		{"H015R", "熱收縮套管 1.5mm", "100", "M", "150"},
		{"客戶名稱:(CH049)世僖"},
		{"H020", "熱收縮套管 2.0mm * 180mm", "10", "PCS", "1,200"},
		{"", "", "", "", ""},
		{"FSG-3-10", "玻璃纖維矽套管 10.0mm", "小計", "", "300"},
		{"客戶名稱：(CK002) 宏達"},
		{"FSG-3-10", "玻璃纖維矽套管 10.0mm", "50", "M", "(30)"},
		{"A9", "螺絲", "5"},
	}
}

func TestScanLedger(t *testing.T) {
	ledger, err := ScanLedger(ledgerGrid())
	if err != nil {
		t.Fatalf("ScanLedger failed: %v", err)
	}

	want := ColumnMap{HeaderRow: 3, ItemCode: 0, Name: 1, Quantity: 2, Amount: 4}
	if ledger.Columns != want {
		t.Errorf("columns = %+v, want %+v", ledger.Columns, want)
	}

	if len(ledger.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(ledger.Rows))
	}

	tests := []struct {
		row      int
		customer string
		code     string
		qty      string
		amount   string
	}{
		{4, "", "H015R", "100", "150"},
		{6, "(CH049)世僖", "H020", "10", "1200"},
		{10, "(CK002) 宏達", "FSG-3-10", "50", "-30"},
		{11, "(CK002) 宏達", "A9", "5", "0"},
	}
	for i, tt := range tests {
		got := ledger.Rows[i]
		if got.Row != tt.row {
			t.Errorf("row %d: source row = %d, want %d", i, got.Row, tt.row)
		}
		if got.Customer != tt.customer {
			t.Errorf("row %d: customer = %q, want %q", i, got.Customer, tt.customer)
		}
		if got.ItemCode != tt.code {
			t.Errorf("row %d: code = %q, want %q", i, got.ItemCode, tt.code)
		}
		if !got.Quantity.Equal(decimal.RequireFromString(tt.qty)) {
			t.Errorf("row %d: quantity = %s, want %s", i, got.Quantity, tt.qty)
		}
		if !got.Amount.Equal(decimal.RequireFromString(tt.amount)) {
			t.Errorf("row %d: amount = %s, want %s", i, got.Amount, tt.amount)
		}
	}

	if ledger.Customers != 2 {
		t.Errorf("customers = %d, want 2", ledger.Customers)
	}
	if len(ledger.Skipped) != 1 || ledger.Skipped[0].Row != 8 {
		t.Errorf("skipped = %v, want row 8", ledger.Skipped)
	}
}

func TestScanLedger_OptionalColumns(t *testing.T) {
	ledger, err := ScanLedger([][]string{
		{"品名", "銷貨量"},
		{"熱收縮套管 1.5mm", "12.5米"},
	})
	if err != nil {
		t.Fatalf("ScanLedger failed: %v", err)
	}
	if ledger.Columns.ItemCode != -1 || ledger.Columns.Amount != -1 {
		t.Errorf("optional columns = %+v, want -1", ledger.Columns)
	}
	got := ledger.Rows[0]
	if got.ItemCode != "" || !got.Amount.IsZero() || !got.Quantity.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("row = %+v", got)
	}
}

func TestScanLedger_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want error
	}{
		{"empty", nil, ErrEmptyLedger},
		{"no quantity header", [][]string{{"品名", "數量"}, {"a", "1"}}, ErrHeaderNotFound},
		{"no name header", [][]string{{"物品編號", "銷貨量"}, {"a", "1"}}, ErrHeaderNotFound},
		{"no lines", [][]string{{"品名", "銷貨量"}, {"客戶名稱:(A)x"}}, ErrNoSalesLines},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanLedger(tt.rows)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,234.5", "1234.5", true},
		{"(5,517.95)", "-5517.95", true},
		{"NT$300", "300", true},
		{"-12", "-12", true},
		{"3.", "3", true},
		{".5", "0.5", true},
		{"1e3", "1000", true},
		{"12.5米", "12.5", true},
		{"", "0", false},
		{"小計", "0", false},
		{"-", "0", false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok {
			t.Errorf("parseNumber(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parseNumber(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCSVParser(t *testing.T) {
	input := "\ufeff銷貨明細表\n" +
		"物品編號,品名,銷貨量,銷貨金額\n" +
		"客戶名稱:(CH049)世僖\n" +
		"H015R,熱收縮套管 1.5mm,100,\"1,500\"\n" +
		",,,\n" +
		"A9,螺絲,5,10\n"

	ledger, err := NewCSVParser().ParseLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLedger failed: %v", err)
	}
	if len(ledger.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(ledger.Rows))
	}
	if !ledger.Rows[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("amount = %s, want 1500", ledger.Rows[0].Amount)
	}
	if ledger.Rows[1].Customer != "(CH049)世僖" {
		t.Errorf("customer = %q", ledger.Rows[1].Customer)
	}
}

func TestXLSXParser(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range ledgerGrid() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatal(err)
		}
	}
	// numeric cells should come back without display formatting
	if err := f.SetCellValue(sheet, "C4", 100); err != nil {
		t.Fatal(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}

	ledger, err := NewXLSXParser().ParseLedger(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseLedger failed: %v", err)
	}
	if len(ledger.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(ledger.Rows))
	}
	if !ledger.Rows[0].Quantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("quantity = %s, want 100", ledger.Rows[0].Quantity)
	}
}

func TestForFile(t *testing.T) {
	for path, want := range map[string]string{
		"ledger.xlsx": "*parser.XLSXParser",
		"LEDGER.CSV":  "*parser.CSVParser",
	} {
		p, err := ForFile(path)
		if err != nil {
			t.Fatalf("ForFile(%s) failed: %v", path, err)
		}
		if got := fmt.Sprintf("%T", p); got != want {
			t.Errorf("ForFile(%s) = %s, want %s", path, got, want)
		}
	}

	if _, err := ForFile("ledger.xls"); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
}
