package core

import (
	"errors"
	"reflect"
	"testing"
)

// wideTable builds the two-person, two-month fixture used across tests.
func wideTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]string{"姓名", "1月", "2月"}, [][]Cell{
		{StringCell("张三"), IntCell(10), IntCell(20)},
		{StringCell("李四"), IntCell(30), IntCell(40)},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func baseRule() Rule {
	r := DefaultRule()
	r.IndexColumn = "姓名"
	r.SelectedColumns = []string{"1月", "2月"}
	r.EnableTrimAndPrefix = false
	return r
}

func cellStrings(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}

func TestReshape_RowCount(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		wantRows int
	}{
		{"two value columns", []string{"1月", "2月"}, 4},
		{"one value column", []string{"2月"}, 2},
		{"index column is ignored", []string{"姓名", "1月"}, 2},
		{"unknown columns are ignored", []string{"1月", "3月"}, 2},
		{"duplicates are collapsed", []string{"1月", "1月", "2月"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := baseRule()
			rule.SelectedColumns = tt.selected

			long, err := Reshape(wideTable(t), rule, "销售")
			if err != nil {
				t.Fatalf("Reshape() error = %v", err)
			}
			if got := long.NumRows(); got != tt.wantRows {
				t.Errorf("NumRows() = %d, want %d", got, tt.wantRows)
			}
		})
	}
}

func TestReshape_IndexThenValue(t *testing.T) {
	rule := baseRule()
	rule.ValueColumnAlias = "月份"

	long, err := Reshape(wideTable(t), rule, "销售")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}

	if got, want := long.ColumnNames(), []string{"姓名", "月份", "销售"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Index), []string{"张三", "张三", "李四", "李四"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Index = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Origin), []string{"1月", "2月", "1月", "2月"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Origin = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Metric), []string{"10", "20", "30", "40"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Metric = %v, want %v", got, want)
	}
}

func TestReshape_ValueThenIndex(t *testing.T) {
	rule := baseRule()
	rule.ExpandMode = ValueThenIndex

	long, err := Reshape(wideTable(t), rule, "销售")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}

	if got, want := cellStrings(long.Index), []string{"张三", "李四", "张三", "李四"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Index = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Origin), []string{"1月", "1月", "2月", "2月"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Origin = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Metric), []string{"10", "30", "20", "40"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Metric = %v, want %v", got, want)
	}
}

func TestReshape_SelectionOrderDrivesTieBreak(t *testing.T) {
	rule := baseRule()
	rule.SelectedColumns = []string{"2月", "1月"}

	long, err := Reshape(wideTable(t), rule, "销售")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if got, want := cellStrings(long.Origin), []string{"2月", "1月", "2月", "1月"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Origin = %v, want %v", got, want)
	}
}

func TestReshape_DuplicateIndexValuesGroupByFirstSeen(t *testing.T) {
	tbl, err := NewTable([]string{"id", "a", "b"}, [][]Cell{
		{StringCell("x"), IntCell(1), IntCell(2)},
		{StringCell("y"), IntCell(3), IntCell(4)},
		{StringCell("x"), IntCell(5), IntCell(6)},
	})
	if err != nil {
		t.Fatal(err)
	}
	rule := DefaultRule()
	rule.IndexColumn = "id"
	rule.SelectedColumns = []string{"a", "b"}
	rule.EnableTrimAndPrefix = false

	long, err := Reshape(tbl, rule, "m")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if got, want := cellStrings(long.Metric), []string{"1", "5", "2", "6", "3", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Metric = %v, want %v", got, want)
	}
}

func TestReshape_ModesProduceSameRows(t *testing.T) {
	a := baseRule()
	b := baseRule()
	b.ExpandMode = ValueThenIndex

	la, err := Reshape(wideTable(t), a, "m")
	if err != nil {
		t.Fatal(err)
	}
	lb, err := Reshape(wideTable(t), b, "m")
	if err != nil {
		t.Fatal(err)
	}

	count := func(l *LongTable) map[string]int {
		m := map[string]int{}
		for i := 0; i < l.NumRows(); i++ {
			m[l.Index[i].String()+"|"+l.Origin[i].String()+"|"+l.Metric[i].String()]++
		}
		return m
	}
	if !reflect.DeepEqual(count(la), count(lb)) {
		t.Errorf("row multisets differ:\n%v\n%v", count(la), count(lb))
	}
}

func TestReshape_HeaderWhitespaceIsIgnored(t *testing.T) {
	padded, err := NewTable([]string{"姓名 ", " 1月", "2月  "}, wideTable(t).Rows())
	if err != nil {
		t.Fatal(err)
	}
	rule := baseRule()
	rule.IndexColumn = "姓名  "

	want, err := Reshape(wideTable(t), baseRule(), "m")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Reshape(padded, rule, "m")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("padded headers changed the result:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestReshape_TrimAndPrefix(t *testing.T) {
	tbl, err := NewTable([]string{"项目", "值"}, [][]Cell{
		{StringCell("  abc"), StringCell("abc")},
		{StringCell("\tdef "), StringCell("   x")},
		{StringCell("g"), IntCell(7)},
	})
	if err != nil {
		t.Fatal(err)
	}
	rule := DefaultRule()
	rule.IndexColumn = "项目"
	rule.SelectedColumns = []string{"值"}
	rule.DataPrefix = "#"

	long, err := Reshape(tbl, rule, "m")
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if got, want := cellStrings(long.Index), []string{"##abc", "#def", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Index = %v, want %v", got, want)
	}
	if got, want := cellStrings(long.Metric), []string{"abc", "###x", "7"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Metric = %v, want %v", got, want)
	}
	// The origin column is never prefixed.
	if got := long.Origin[0].String(); got != "值" {
		t.Errorf("Origin[0] = %q, want 值", got)
	}
}

func TestPrefixLeadingSpace(t *testing.T) {
	tests := []struct {
		in, prefix, want string
	}{
		{"  abc", "#", "##abc"},
		{"abc", "#", "abc"},
		{"abc  ", "#", "abc"},
		{"　全角", "*", "*全角"},
		{"   ", "#", "###"},
		{"", "#", ""},
		{"  ab", "--", "----ab"},
	}
	for _, tt := range tests {
		if got := PrefixLeadingSpace(tt.in, tt.prefix); got != tt.want {
			t.Errorf("PrefixLeadingSpace(%q, %q) = %q, want %q", tt.in, tt.prefix, got, tt.want)
		}
	}
}

func TestReshape_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Rule)
		metric string
	}{
		{"missing index column", func(r *Rule) { r.IndexColumn = "编号" }, "m"},
		{"blank index column", func(r *Rule) { r.IndexColumn = "" }, "m"},
		{"no usable columns", func(r *Rule) { r.SelectedColumns = []string{"姓名", "9月"} }, "m"},
		{"blank metric name", func(r *Rule) {}, "  "},
		{"unknown expand mode", func(r *Rule) { r.ExpandMode = "sideways" }, "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := baseRule()
			tt.modify(&rule)

			_, err := Reshape(wideTable(t), rule, tt.metric)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("Reshape() error = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestReshape_IndexAlias(t *testing.T) {
	rule := baseRule()
	rule.IndexAlias = "员工"

	long, err := Reshape(wideTable(t), rule, "m")
	if err != nil {
		t.Fatal(err)
	}
	if long.IndexName != "员工" {
		t.Errorf("IndexName = %q, want 员工", long.IndexName)
	}
	if long.OriginName != DefaultValueAlias {
		t.Errorf("OriginName = %q, want %q", long.OriginName, DefaultValueAlias)
	}
}
