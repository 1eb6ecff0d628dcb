package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CellKind identifies the scalar type held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

// Cell is a single scalar spreadsheet value.
// The zero value is an empty (missing) cell.
type Cell struct {
	Kind CellKind
	Str  string
	Num  decimal.Decimal
}

// StringCell returns a text cell. Text is kept verbatim, including whitespace.
func StringCell(s string) Cell {
	return Cell{Kind: CellString, Str: s}
}

// NumberCell returns a numeric cell.
func NumberCell(d decimal.Decimal) Cell {
	return Cell{Kind: CellNumber, Num: d}
}

// IntCell returns a numeric cell holding an integer.
func IntCell(i int64) Cell {
	return NumberCell(decimal.NewFromInt(i))
}

// EmptyCell returns a missing value.
func EmptyCell() Cell {
	return Cell{}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String returns the textual form of the cell.
// Empty cells render as "" and numbers in canonical decimal form.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return c.Num.String()
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and value.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellString:
		return c.Str == o.Str
	case CellNumber:
		return c.Num.Equal(o.Num)
	default:
		return true
	}
}

// key returns a comparable identity for grouping cells by value.
func (c Cell) key() string {
	switch c.Kind {
	case CellString:
		return "s:" + c.Str
	case CellNumber:
		return "n:" + c.Num.String()
	default:
		return "e:"
	}
}

// Column is a named sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Table is an ordered set of uniquely named, equal-length columns.
type Table struct {
	Columns []Column
}

// NewTable builds a table from a header and row-major data.
// Short rows are padded with empty cells; extra cells are an error.
func NewTable(header []string, rows [][]Cell) (*Table, error) {
	seen := make(map[string]bool, len(header))
	t := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		t.Columns[i] = Column{Name: name, Cells: make([]Cell, len(rows))}
	}

	for r, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", r+1, len(row), len(header))
		}
		for c, cell := range row {
			t.Columns[c].Cells[r] = cell
		}
	}
	return t, nil
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.Columns))
	for c, col := range t.Columns {
		row[c] = col.Cells[i]
	}
	return row
}

// Rows returns all rows in order.
func (t *Table) Rows() [][]Cell {
	rows := make([][]Cell, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// setColumn appends a column, or replaces the data of an existing column with
// the same name while keeping its position.
func (t *Table) setColumn(name string, cells []Cell) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			t.Columns[i].Cells = cells
			return
		}
	}
	t.Columns = append(t.Columns, Column{Name: name, Cells: cells})
}

// NormalizeColumnName trims surrounding whitespace from a header.
// Trailing-space header typos must not break column matching.
func NormalizeColumnName(name string) string {
	return strings.TrimSpace(name)
}

// ColumnSet returns the normalized column names of t as a set.
func ColumnSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[NormalizeColumnName(n)] = true
	}
	return set
}

// SameColumnSet reports whether two headers hold the same normalized names,
// ignoring order.
func SameColumnSet(a, b []string) bool {
	sa, sb := ColumnSet(a), ColumnSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}
