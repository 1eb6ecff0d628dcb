package core

// reshape.go implements the wide-to-long melt.
//
// The pipeline for one table is:
//  1. Normalize headers (trim) on the input and on the rule's names
//  2. Resolve value columns in rule order
//  3. Unpivot row-major into (index, origin, metric) triples
//  4. Stable-sort by the two-key composite selected by ExpandMode
//  5. Rename the index and origin fields
//  6. Optionally encode leading whitespace as a repeated prefix

import (
	"sort"
	"strings"
	"unicode"
)

// LongTable is the intermediate result of Reshape. It always has exactly
// three columns: the index column, the origin column (which wide column a
// row came from), and the metric column holding the values.
type LongTable struct {
	IndexName  string
	OriginName string
	MetricName string

	Index  []Cell
	Origin []Cell
	Metric []Cell
}

// NumRows returns the number of rows.
func (l *LongTable) NumRows() int {
	return len(l.Index)
}

// ColumnNames returns the three column names in order.
func (l *LongTable) ColumnNames() []string {
	return []string{l.IndexName, l.OriginName, l.MetricName}
}

// Column returns the cells of the column with the given name. The index
// column wins over the others when names collide.
func (l *LongTable) Column(name string) ([]Cell, bool) {
	switch name {
	case l.IndexName:
		return l.Index, true
	case l.OriginName:
		return l.Origin, true
	case l.MetricName:
		return l.Metric, true
	}
	return nil, false
}

// Table converts the long table into a generic Table.
func (l *LongTable) Table() *Table {
	t := &Table{}
	t.setColumn(l.IndexName, l.Index)
	t.setColumn(l.OriginName, l.Origin)
	t.setColumn(l.MetricName, l.Metric)
	return t
}

type meltRow struct {
	index    Cell
	origin   int // position in value columns
	metric   Cell
	idxOrder int
}

// Reshape melts input into a long table using rule. metricName names the
// value column, typically the base name of the source file.
func Reshape(input *Table, rule Rule, metricName string) (*LongTable, error) {
	metricName = strings.TrimSpace(metricName)
	if metricName == "" {
		return nil, configErrorf("metric name is blank")
	}

	cols := make(map[string]Column, len(input.Columns))
	for _, c := range input.Columns {
		name := NormalizeColumnName(c.Name)
		if _, dup := cols[name]; dup {
			return nil, configErrorf("duplicate column %q after trimming headers", name)
		}
		cols[name] = c
	}

	indexCol := NormalizeColumnName(rule.IndexColumn)
	idx, ok := cols[indexCol]
	if indexCol == "" || !ok {
		return nil, configErrorf("index column %q not found in input", indexCol)
	}

	valueCols := resolveValueColumns(rule.SelectedColumns, cols, indexCol)
	if len(valueCols) == 0 {
		return nil, configErrorf("no usable columns to expand")
	}

	// First-seen position of each distinct index value.
	firstSeen := make(map[string]int)
	for i, cell := range idx.Cells {
		if _, seen := firstSeen[cell.key()]; !seen {
			firstSeen[cell.key()] = i
		}
	}

	n := input.NumRows()
	rows := make([]meltRow, 0, n*len(valueCols))
	for r := 0; r < n; r++ {
		ic := idx.Cells[r]
		for v, name := range valueCols {
			rows = append(rows, meltRow{
				index:    ic,
				origin:   v,
				metric:   cols[name].Cells[r],
				idxOrder: firstSeen[ic.key()],
			})
		}
	}

	mode, err := ParseExpandMode(string(rule.ExpandMode))
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	sortMelted(rows, mode)

	out := &LongTable{
		IndexName:  rule.IndexName(),
		OriginName: rule.ValueName(),
		MetricName: metricName,
		Index:      make([]Cell, len(rows)),
		Origin:     make([]Cell, len(rows)),
		Metric:     make([]Cell, len(rows)),
	}
	for i, row := range rows {
		out.Index[i] = row.index
		out.Origin[i] = StringCell(valueCols[row.origin])
		out.Metric[i] = row.metric
	}

	if rule.EnableTrimAndPrefix {
		out.Index = trimAndPrefix(out.Index, rule.DataPrefix)
		out.Metric = trimAndPrefix(out.Metric, rule.DataPrefix)
	}
	return out, nil
}

// resolveValueColumns keeps the selected columns that exist in the input and
// are not the index column, in selection order, without duplicates.
func resolveValueColumns(selected []string, cols map[string]Column, indexCol string) []string {
	seen := make(map[string]bool, len(selected))
	var out []string
	for _, s := range selected {
		name := NormalizeColumnName(s)
		if name == indexCol || seen[name] {
			continue
		}
		if _, ok := cols[name]; !ok {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func sortMelted(rows []meltRow, mode ExpandMode) {
	if mode == ValueThenIndex {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].origin != rows[j].origin {
				return rows[i].origin < rows[j].origin
			}
			return rows[i].idxOrder < rows[j].idxOrder
		})
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].idxOrder != rows[j].idxOrder {
			return rows[i].idxOrder < rows[j].idxOrder
		}
		return rows[i].origin < rows[j].origin
	})
}

// trimAndPrefix replaces each cell with its text form, trimmed, preceded by
// prefix repeated once per leading whitespace rune.
func trimAndPrefix(cells []Cell, prefix string) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = StringCell(PrefixLeadingSpace(c.String(), prefix))
	}
	return out
}

// PrefixLeadingSpace encodes the amount of leading whitespace in s as a
// repeated prefix and strips surrounding whitespace.
//
//	PrefixLeadingSpace("  abc", "#") == "##abc"
func PrefixLeadingSpace(s, prefix string) string {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return strings.Repeat(prefix, n) + strings.TrimSpace(s)
}
