package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// plainDecimal matches numbers written without padding, grouping or
// exponent. Codes such as "007" or "1e3" stay text.
var plainDecimal = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// decodeCSV reads a comma-separated file. The first record is the header.
// Plain decimals become numbers, other values text; empty fields become
// empty cells.
func decodeCSV(src io.Reader) (*core.Table, error) {
	br := bufio.NewReader(src)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv file is empty")
	}

	header := headerNames(records[0], width(records))
	rows := make([][]core.Cell, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]core.Cell, len(header))
		for i, v := range rec {
			if v != "" {
				row[i] = csvCell(v)
			}
		}
		rows = append(rows, row)
	}
	return core.NewTable(header, rows)
}

func csvCell(v string) core.Cell {
	if plainDecimal.MatchString(v) {
		if d, err := decimal.NewFromString(v); err == nil {
			return core.NumberCell(d)
		}
	}
	return core.StringCell(v)
}
