package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestConvertTable_EndToEnd(t *testing.T) {
	rule := baseRule()
	rule.ValueColumnAlias = "月份"
	rule.ExpandMode = IndexThenValue
	rule.EnableSerialNumber = true
	rule.GeneralOutputMap = OutputMap{
		{Role: RoleSerialNumber, Name: "序号"},
		{Role: RoleIndexAlias, Name: "姓名"},
		{Role: RoleValueAlias, Name: "月份"},
		{Role: RoleConfigurableField, Name: "数值"},
	}

	out, err := ConvertTable(wideTable(t), rule, "工资表", map[string]string{"工资表": "数值"})
	if err != nil {
		t.Fatalf("ConvertTable() error = %v", err)
	}

	if got, want := out.ColumnNames(), []string{"序号", "姓名", "月份", "数值"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ColumnNames() = %v, want %v", got, want)
	}
	want := [][]string{
		{"1", "张三", "1月", "10"},
		{"2", "张三", "2月", "20"},
		{"3", "李四", "1月", "30"},
		{"4", "李四", "2月", "40"},
	}
	for i, row := range out.Rows() {
		if got := cellStrings(row); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("row %d = %v, want %v", i+1, got, want[i])
		}
	}
	if c := out.Columns[0].Cells[0]; c.Kind != CellNumber {
		t.Errorf("serial number kind = %v, want number", c.Kind)
	}
}

func longFixture(t *testing.T) *LongTable {
	t.Helper()
	long, err := Reshape(wideTable(t), baseRule(), "销售")
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	return long
}

func TestProject_ColumnOrderFollowsMap(t *testing.T) {
	rule := baseRule()
	m := OutputMap{
		{Role: RoleValueAlias, Name: "月"},
		{Role: RoleConfigurableField, Name: "ignored"},
		{Role: RoleIndexAlias, Name: "人"},
	}

	out, err := Project(longFixture(t), rule, "销售", m, nil)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if got, want := out.ColumnNames(), []string{"月", "销售", "人"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
}

func TestProject_ConfigurableFieldAppended(t *testing.T) {
	m := OutputMap{{Role: RoleIndexAlias, Name: "姓名"}}

	out, err := Project(longFixture(t), baseRule(), "销售", m, map[string]string{"销售": "金额"})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if got, want := out.ColumnNames(), []string{"姓名", "金额"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	if m.Has(RoleConfigurableField) {
		t.Error("Project() mutated the caller's map")
	}
}

func TestProject_SerialNumberToggle(t *testing.T) {
	m := OutputMap{
		{Role: RoleSerialNumber, Name: "序号"},
		{Role: RoleIndexAlias, Name: "姓名"},
	}

	rule := baseRule()
	rule.EnableSerialNumber = false
	out, err := Project(longFixture(t), rule, "销售", m, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := out.ColumnNames(), []string{"姓名", "销售"}; !reflect.DeepEqual(got, want) {
		t.Errorf("serial disabled: ColumnNames() = %v, want %v", got, want)
	}

	rule.EnableSerialNumber = true
	out, err = Project(longFixture(t), rule, "销售", m, nil)
	if err != nil {
		t.Fatal(err)
	}
	col, ok := out.Column("序号")
	if !ok {
		t.Fatal("serial enabled: 序号 column missing")
	}
	if got, want := cellStrings(col.Cells), []string{"1", "2", "3", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("serial numbers = %v, want %v", got, want)
	}
}

func TestProject_Passthrough(t *testing.T) {
	m := OutputMap{
		{Role: RolePassthrough, Source: "销售", Name: "原值"},
		{Role: RolePassthrough, Source: "不存在", Name: "备注"},
	}

	out, err := Project(longFixture(t), baseRule(), "销售", m, nil)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	orig, _ := out.Column("原值")
	if got, want := cellStrings(orig.Cells), []string{"10", "20", "30", "40"}; !reflect.DeepEqual(got, want) {
		t.Errorf("passthrough = %v, want %v", got, want)
	}

	missing, ok := out.Column("备注")
	if !ok {
		t.Fatal("unknown passthrough column missing")
	}
	if len(missing.Cells) != 4 {
		t.Fatalf("unknown passthrough has %d rows, want 4", len(missing.Cells))
	}
	for i, c := range missing.Cells {
		if !c.IsEmpty() {
			t.Errorf("row %d = %v, want empty", i, c)
		}
	}
}

func TestProject_DuplicateNamesOverwriteInPlace(t *testing.T) {
	m := OutputMap{
		{Role: RoleIndexAlias, Name: "X"},
		{Role: RoleValueAlias, Name: "X"},
	}

	out, err := Project(longFixture(t), baseRule(), "销售", m, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := out.ColumnNames(), []string{"X", "销售"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	x, _ := out.Column("X")
	if x.Cells[0].String() != "1月" {
		t.Errorf("X[0] = %q, want the later entry's data", x.Cells[0].String())
	}
}

func TestProject_EmptyMap(t *testing.T) {
	_, err := Project(longFixture(t), baseRule(), "销售", nil, nil)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("Project() error = %v, want *ConfigurationError", err)
	}
}

func TestValueColumnName(t *testing.T) {
	names := map[string]string{"a": "Alpha", "b": "  "}
	tests := []struct{ metric, want string }{
		{"a", "Alpha"},
		{"b", "b"},
		{"c", "c"},
	}
	for _, tt := range tests {
		if got := ValueColumnName(tt.metric, names); got != tt.want {
			t.Errorf("ValueColumnName(%q) = %q, want %q", tt.metric, got, tt.want)
		}
	}
}
