// Package sheet reads and writes spreadsheet files as core tables.
//
// Supported inputs are .xlsx/.xlsm workbooks (first sheet only) and .csv
// files. Output is always a single-sheet .xlsx workbook.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrFileTooLarge is returned for inputs above the reader's size limit.
var ErrFileTooLarge = errors.New("file too large")

// Format identifies an input file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatCSV
)

// DetectFormat picks the format from the file extension.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Reader loads spreadsheet files. The zero value has no size limit.
type Reader struct {
	// MaxFileSize rejects larger files when positive.
	MaxFileSize int64
}

// NewReader returns a Reader limited to maxFileSize bytes.
func NewReader(maxFileSize int64) *Reader {
	return &Reader{MaxFileSize: maxFileSize}
}

// Read loads the file at path. Errors are *core.ReadError.
func (r *Reader) Read(path string) (*core.Table, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, unsupported(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}
	if err := r.checkSize(info.Size()); err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := decode(format, f)
	if err != nil {
		return nil, &core.ReadError{Path: path, Err: err}
	}
	return t, nil
}

// ReadBytes decodes an uploaded file. name only selects the format.
func (r *Reader) ReadBytes(name string, data []byte) (*core.Table, error) {
	format := DetectFormat(name)
	if format == FormatUnknown {
		return nil, unsupported(name)
	}
	if err := r.checkSize(int64(len(data))); err != nil {
		return nil, &core.ReadError{Path: name, Err: err}
	}

	t, err := decode(format, bytes.NewReader(data))
	if err != nil {
		return nil, &core.ReadError{Path: name, Err: err}
	}
	return t, nil
}

func (r *Reader) checkSize(n int64) error {
	if r.MaxFileSize > 0 && n > r.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, n, r.MaxFileSize)
	}
	return nil
}

func unsupported(path string) error {
	return &core.ReadError{
		Path: path,
		Err:  fmt.Errorf("unsupported file type %q (want .xlsx, .xlsm or .csv)", filepath.Ext(path)),
	}
}

func decode(format Format, src io.Reader) (*core.Table, error) {
	if format == FormatCSV {
		return decodeCSV(src)
	}
	return decodeXLSX(src)
}

// decodeXLSX reads the first sheet. The first row is the header.
//
// A cell becomes a number when its stored value is numeric and its displayed
// text is a plain number too. Dates, percentages and other formatted numbers
// keep their displayed text.
func decodeXLSX(src io.Reader) (*core.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(shown) == 0 {
		return nil, errors.New("sheet is empty")
	}

	header := headerNames(shown[0], width(shown))
	rows := make([][]core.Cell, 0, len(shown)-1)
	for r := 1; r < len(shown); r++ {
		row := make([]core.Cell, len(header))
		for c := range row {
			text := at(shown[r], c)
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			row[c] = xlsxCell(typ, at(at2(raw, r), c), text)
		}
		rows = append(rows, row)
	}
	return core.NewTable(header, rows)
}

func xlsxCell(typ excelize.CellType, raw, shown string) core.Cell {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return core.StringCell(shown)
		}
		if _, err := decimal.NewFromString(strings.ReplaceAll(shown, ",", "")); err == nil {
			return core.NumberCell(d)
		}
		return core.StringCell(shown)
	default:
		return core.StringCell(shown)
	}
}

// headerNames fills blank header cells with "Unnamed: N" so every column
// has a unique name.
func headerNames(row []string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = at(row, i)
		if strings.TrimSpace(names[i]) == "" {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return names
}

func width(rows [][]string) int {
	n := 0
	for _, r := range rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func at2(rows [][]string, i int) []string {
	if i < len(rows) {
		return rows[i]
	}
	return nil
}
