package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type CSVParser struct {
	TrimWhitespace bool
	SkipEmptyRows  bool
}

func NewCSVParser() *CSVParser {
	return &CSVParser{
		TrimWhitespace: true,
		SkipEmptyRows:  true,
	}
}

// ParseLedger reads a ledger CSV export and returns the scanned sales rows
func (p *CSVParser) ParseLedger(r io.Reader) (*Ledger, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = p.TrimWhitespace
	reader.LazyQuotes = true
	// ledger exports mix short customer rows with full sales rows
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	if p.SkipEmptyRows {
		records = blankToEmpty(records)
	}

	return ScanLedger(records)
}

// blankToEmpty turns rows made only of empty cells into zero-length rows
// so the scanner skips them without looking at their cells
func blankToEmpty(records [][]string) [][]string {
	for i, record := range records {
		blank := true
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if blank {
			records[i] = nil
		}
	}
	return records
}
