package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrEmptyLedger     = errors.New("ledger is empty")
	ErrHeaderNotFound  = errors.New("header row not found: the ledger needs at least 品名 and 銷貨量 columns")
	ErrNoSalesLines    = errors.New("no sales lines found in ledger")
	ErrUnsupportedFile = errors.New("unsupported ledger file type")
)

// Header keywords; a header cell matches when it contains the keyword after
// whitespace is removed
const (
	headerQuantity = "銷貨量"
	headerItemCode = "物品編號"
	headerName     = "品名"
	headerAmount   = "銷貨金額"
)

// 客戶名稱:(CH049)世僖
var customerPattern = regexp.MustCompile(`^客戶名稱[:：]\s*(.+)$`)

// Parser defines the interface for reading sales ledger exports
type Parser interface {
	ParseLedger(r io.Reader) (*Ledger, error)
}

// ValidationError represents a parsing error with context
type ValidationError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d, column %s: failed to parse '%s': %v",
		e.Row, e.Column, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ForFile picks a parser by file extension
func ForFile(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return NewXLSXParser(), nil
	case ".csv":
		return NewCSVParser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
}

// ParseFile opens path and parses it with the parser matching its extension
func ParseFile(path string) (*Ledger, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer file.Close()

	return p.ParseLedger(file)
}

// ScanLedger locates the header row, then walks the rows after it carrying
// the current customer forward. Rows without a name are skipped silently;
// rows with a name but no numeric quantity are skipped and reported.
func ScanLedger(rows [][]string) (*Ledger, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLedger
	}

	colMap, ok := findHeader(rows)
	if !ok {
		return nil, ErrHeaderNotFound
	}

	ledger := &Ledger{Columns: colMap}
	customer := ""

	for i := colMap.HeaderRow; i < len(rows); i++ {
		record := rows[i]
		rowNum := i + 1
		if len(record) == 0 {
			continue
		}

		if m := customerPattern.FindStringSubmatch(strings.TrimSpace(record[0])); m != nil {
			customer = strings.TrimSpace(m[1])
			ledger.Customers++
			continue
		}

		name := getCell(record, colMap.Name)
		if name == "" {
			continue
		}

		rawQty := getCell(record, colMap.Quantity)
		qty, ok := parseNumber(rawQty)
		if !ok {
			ledger.Skipped = append(ledger.Skipped, &ValidationError{
				Row:    rowNum,
				Column: headerQuantity,
				Value:  rawQty,
				Err:    fmt.Errorf("not a number"),
			})
			continue
		}

		// a missing or unreadable amount counts as zero revenue
		amount, _ := parseNumber(getCell(record, colMap.Amount))

		ledger.Rows = append(ledger.Rows, SalesRow{
			Row:      rowNum,
			Customer: customer,
			ItemCode: getCell(record, colMap.ItemCode),
			Name:     name,
			Quantity: qty,
			Amount:   amount,
		})
	}

	if len(ledger.Rows) == 0 {
		return ledger, ErrNoSalesLines
	}

	return ledger, nil
}

// findHeader returns the first row holding a quantity column. Name and
// quantity are mandatory; code and amount are optional.
func findHeader(rows [][]string) (ColumnMap, bool) {
	for i, row := range rows {
		qty := findColumn(row, headerQuantity)
		if qty == -1 {
			continue
		}

		colMap := ColumnMap{
			HeaderRow: i + 1,
			Quantity:  qty,
			ItemCode:  findColumn(row, headerItemCode),
			Name:      findColumn(row, headerName),
			Amount:    findColumn(row, headerAmount),
		}
		return colMap, colMap.Name != -1
	}
	return ColumnMap{}, false
}

func findColumn(row []string, keyword string) int {
	for i, cell := range row {
		if strings.Contains(stripWhitespace(cell), keyword) {
			return i
		}
	}
	return -1
}

// getCell safely retrieves a trimmed cell; a negative index yields ""
func getCell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
