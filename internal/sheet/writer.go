package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// maxExactInt bounds integers that survive a float64 round trip.
var maxExactInt = decimal.NewFromInt(1 << 53)

// SheetName is the name of the single sheet in written workbooks.
const SheetName = "Sheet1"

// Writer saves tables as xlsx workbooks.
type Writer struct{}

// NewWriter returns a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write saves t to path, appending .xlsx when missing and overwriting any
// existing file. It returns the path written. Errors are *core.WriteError.
func (w *Writer) Write(t *core.Table, path string) (string, error) {
	path = core.EnsureXLSXExt(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &core.WriteError{Path: path, Err: err}
		}
	}

	f, err := build(t)
	if err != nil {
		return "", &core.WriteError{Path: path, Err: err}
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", &core.WriteError{Path: path, Err: err}
	}
	return path, nil
}

// WriteTo streams t as an xlsx workbook to out.
func (w *Writer) WriteTo(t *core.Table, out io.Writer) error {
	f, err := build(t)
	if err != nil {
		return &core.WriteError{Path: "(stream)", Err: err}
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return &core.WriteError{Path: "(stream)", Err: err}
	}
	return nil
}

func build(t *core.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r := 0; r < t.NumRows(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, rowValues(t.Row(r))); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush: %w", err)
	}
	return f, nil
}

func rowValues(row []core.Cell) []interface{} {
	values := make([]interface{}, len(row))
	for i, c := range row {
		switch c.Kind {
		case core.CellNumber:
			if c.Num.IsInteger() && c.Num.Abs().LessThan(maxExactInt) {
				values[i] = c.Num.IntPart()
			} else {
				values[i] = c.Num.InexactFloat64()
			}
		case core.CellString:
			values[i] = c.Str
		default:
			values[i] = nil
		}
	}
	return values
}
