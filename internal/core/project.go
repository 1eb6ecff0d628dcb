package core

import "strings"

// ValueColumnName resolves the header of the configurable value column for
// a file: valueNames[metricName] when set, otherwise metricName itself.
func ValueColumnName(metricName string, valueNames map[string]string) string {
	if n := strings.TrimSpace(valueNames[metricName]); n != "" {
		return n
	}
	return metricName
}

// Project maps a long table onto the final output layout described by
// outputMap. Columns appear in map order. A configurable-field entry is
// appended when the map lacks one, so the values are always present.
//
// Serial-number entries are skipped entirely when the rule disables serial
// numbers. Passthrough entries whose source is not a column of long produce
// a column of empty cells.
func Project(long *LongTable, rule Rule, metricName string, outputMap OutputMap, valueNames map[string]string) (*Table, error) {
	if len(outputMap) == 0 {
		return nil, configErrorf("output map is empty")
	}

	fields := outputMap.Clone()
	valueName := ValueColumnName(metricName, valueNames)
	if i := fields.Index(KeyConfigurableField); i >= 0 {
		fields[i].Name = valueName
	} else {
		fields = append(fields, OutputField{Role: RoleConfigurableField, Name: valueName})
	}

	n := long.NumRows()
	out := &Table{}
	for _, f := range fields {
		switch f.Role {
		case RoleSerialNumber:
			if !rule.EnableSerialNumber {
				continue
			}
			out.setColumn(f.Name, serialNumbers(n))
		case RoleIndexAlias:
			out.setColumn(f.Name, copyCells(long.Index))
		case RoleValueAlias:
			out.setColumn(f.Name, copyCells(long.Origin))
		case RoleConfigurableField:
			out.setColumn(f.Name, copyCells(long.Metric))
		default:
			if cells, ok := long.Column(f.Source); ok {
				out.setColumn(f.Name, copyCells(cells))
			} else {
				out.setColumn(f.Name, make([]Cell, n))
			}
		}
	}
	return out, nil
}

func serialNumbers(n int) []Cell {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = IntCell(int64(i + 1))
	}
	return cells
}

func copyCells(cells []Cell) []Cell {
	return append([]Cell(nil), cells...)
}
