package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads the first worksheet of an .xlsx ledger
type XLSXParser struct {
	// Sheet overrides the worksheet to read; empty means the first one
	Sheet string
}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

// ParseLedger reads a workbook and scans its ledger sheet
func (p *XLSXParser) ParseLedger(r io.Reader) (*Ledger, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, ErrEmptyLedger
	}

	// raw values keep numbers free of display formatting
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return ScanLedger(rows)
}
