package parser

import (
	"github.com/shopspring/decimal"
)

// SalesRow represents one parsed line of the sales ledger
type SalesRow struct {
	Row      int // 1-based row number in the source sheet
	Customer string
	ItemCode string
	Name     string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// ColumnMap records where the ledger columns were found. Optional columns
// are -1 when absent.
type ColumnMap struct {
	HeaderRow int // 1-based
	ItemCode  int
	Name      int
	Quantity  int
	Amount    int
}

// Ledger is the result of scanning one ledger sheet
type Ledger struct {
	Columns   ColumnMap
	Rows      []SalesRow
	Customers int
	Skipped   []*ValidationError
}
