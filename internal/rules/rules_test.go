package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRule() core.Rule {
	r := core.DefaultRule()
	r.IndexColumn = "姓名"
	r.SelectedColumns = []string{"1月", "2月"}
	r.ValueColumnAlias = "月份"
	r.GeneralOutputMap = core.OutputMap{
		{Role: core.RoleSerialNumber, Name: "序号"},
		{Role: core.RoleIndexAlias, Name: "姓名"},
		{Role: core.RoleValueAlias, Name: "月份"},
		{Role: core.RoleConfigurableField, Name: "数值"},
	}
	return r
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"rule.json", "rule.yaml", "rule.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, sampleRule()))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sampleRule(), got)
		})
	}
}

func TestEncodeKeepsMapOrder(t *testing.T) {
	rule := sampleRule()
	rule.GeneralOutputMap = core.OutputMap{
		{Role: core.RoleConfigurableField, Name: "数值"},
		{Role: core.RoleIndexAlias, Name: "姓名"},
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		data, err := Encode(rule, format)
		require.NoError(t, err)
		s := string(data)
		assert.Less(t, strings.Index(s, "可配置字段"), strings.Index(s, "索引列名"), string(format))
	}
}

func TestDecodeDefaults(t *testing.T) {
	rule, err := Decode([]byte(`{"index_column":"姓名","selected_columns":["1月"]}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, core.DefaultDataPrefix, rule.DataPrefix)
	assert.Equal(t, core.IndexThenValue, rule.ExpandMode)
	assert.True(t, rule.EnableSerialNumber)
}

func TestDecodeYAML(t *testing.T) {
	src := `
index_column: 姓名
selected_columns: [1月, 2月]
expand_mode: value_then_index
enable_serial_number: false
general_output_map:
  索引列名: 员工
  备注: 说明
`
	rule, err := Decode([]byte(src), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, core.ValueThenIndex, rule.ExpandMode)
	assert.False(t, rule.EnableSerialNumber)
	require.Len(t, rule.GeneralOutputMap, 2)
	assert.Equal(t, core.RolePassthrough, rule.GeneralOutputMap[1].Role)
	assert.Equal(t, "备注", rule.GeneralOutputMap[1].Source)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"bad json", `{"index_column":`, FormatJSON},
		{"unknown field", `{"index_col":"x"}`, FormatJSON},
		{"bad mode", `{"expand_mode":"diagonal"}`, FormatJSON},
		{"bad yaml", "index_column: [", FormatYAML},
		{"unknown format", `{}`, Format("toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestSaveRequiresCompleteRule(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		modify func(r *core.Rule)
		want   string
	}{
		{"no index", func(r *core.Rule) { r.IndexColumn = "" }, "no index column selected"},
		{"no columns", func(r *core.Rule) { r.SelectedColumns = nil }, "no columns selected"},
		{"empty map", func(r *core.Rule) { r.GeneralOutputMap = nil }, "output map is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := sampleRule()
			tt.modify(&rule)
			path := filepath.Join(dir, tt.name+".json")

			err := Save(path, rule)
			var ce *core.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "nothing written")
		})
	}

	assert.Error(t, Save(filepath.Join(dir, "rule.txt"), sampleRule()))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sampleRule(), []string{"姓名", "1月", "2月", "3月"}))

	err := Validate(sampleRule(), []string{"姓名", "1月"})
	var rm *core.RuleMismatchError
	require.ErrorAs(t, err, &rm)
	assert.False(t, rm.MissingIndex)
	assert.Equal(t, []string{"2月"}, rm.MissingColumns)
}

func TestInit(t *testing.T) {
	rule, err := Init([]string{"姓名 ", "1月", "2月"})
	require.NoError(t, err)

	assert.Equal(t, "姓名", rule.IndexColumn)
	assert.Equal(t, []string{"1月", "2月"}, rule.SelectedColumns)
	assert.Equal(t, []string{"序号", "姓名", core.DefaultValueAlias}, rule.GeneralOutputMap.Names())

	_, err = Init([]string{"only"})
	assert.Error(t, err)
}
