package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the environment variables that would change CLI defaults.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "DB_URL",
		"CONVERT_OUTPUT_DIR", "CONVERT_NAME_TEMPLATE", "CONVERT_VALUE_ALIAS", "CONVERT_DATA_PREFIX",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeWide(t *testing.T, dir, name string, header []string) string {
	t.Helper()
	rows := [][]core.Cell{
		{core.StringCell("张三"), core.IntCell(100), core.IntCell(200)},
		{core.StringCell("李四"), core.IntCell(300), core.IntCell(400)},
	}
	tbl, err := core.NewTable(header, rows)
	require.NoError(t, err)
	path, err := sheet.NewWriter().Write(tbl, filepath.Join(dir, name))
	require.NoError(t, err)
	return path
}

var salaryHeader = []string{"姓名", "1月", "2月"}

func TestConvertWithFlags(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)
	outDir := filepath.Join(dir, "export")

	stdout, err := run(t, "convert",
		"--index", "姓名",
		"--value-alias", "月份",
		"--value-name", "工资表=数值",
		"--out", outDir,
		in,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok ")
	assert.Contains(t, stdout, "1 converted, 0 failed")

	got, err := sheet.NewReader(0).Read(filepath.Join(outDir, "清洗_工资表.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"序号", "姓名", "月份", "数值"}, got.ColumnNames())
	assert.Equal(t, 4, got.NumRows())
}

func TestConvertTemplateFlag(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)
	outDir := filepath.Join(dir, "export")

	_, err := run(t, "convert", "--index", "姓名", "--template", "out_{basename}", "--out", outDir, in)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "out_工资表.xlsx"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "清洗_工资表.xlsx"))
	assert.True(t, os.IsNotExist(err), "default name not used")
}

func TestConvertJSONOutput(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)

	stdout, err := run(t, "--json", "convert", "--index", "姓名", "--columns", "1月", "--serial=false", "--out", dir, in)
	require.NoError(t, err)

	var result core.BatchResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Files, 1)
	assert.Equal(t, 2, result.Files[0].Rows)
	assert.Empty(t, result.Files[0].Error)
}

func TestConvertHeaderMismatchWritesNothing(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := writeWide(t, dir, "a.xlsx", salaryHeader)
	b := writeWide(t, dir, "b.xlsx", []string{"姓名", "1月", "3月"})
	outDir := filepath.Join(dir, "export")

	_, err := run(t, "convert", "--index", "姓名", "--out", outDir, a, b)
	require.Error(t, err)
	var mismatch *core.HeaderMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"2月"}, mismatch.Missing)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no output directory created")
}

func TestConvertRequiresIndex(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)

	_, err := run(t, "convert", "--out", dir, in)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestConvertUnknownColumn(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)

	_, err := run(t, "convert", "--index", "姓名", "--columns", "1月,9月", "--out", dir, in)
	var mismatch *core.RuleMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"9月"}, mismatch.MissingColumns)
}

func TestRuleInitThenConvert(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)
	rulePath := filepath.Join(dir, "salary.yaml")

	stdout, err := run(t, "rule", "init", in, "-o", rulePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote")

	outDir := filepath.Join(dir, "out")
	_, err = run(t, "convert", "--rule", rulePath, "--output", "工资表=result", "--mode", "value_then_index", "--out", outDir, in)
	require.NoError(t, err)

	got, err := sheet.NewReader(0).Read(filepath.Join(outDir, "result.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"序号", "姓名", "日期", "工资表"}, got.ColumnNames())

	origin, ok := got.Column("日期")
	require.True(t, ok)
	var months []string
	for _, c := range origin.Cells {
		months = append(months, c.String())
	}
	assert.Equal(t, []string{"1月", "1月", "2月", "2月"}, months)
}

func TestRuleInitStdout(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)

	stdout, err := run(t, "rule", "init", in)
	require.NoError(t, err)

	var rule core.Rule
	require.NoError(t, json.Unmarshal([]byte(stdout), &rule))
	assert.Equal(t, "姓名", rule.IndexColumn)
	assert.Equal(t, []string{"1月", "2月"}, rule.SelectedColumns)
	assert.Equal(t, []string{"序号", "姓名", "日期"}, rule.GeneralOutputMap.Names())
}

func TestRuleCheck(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	good := writeWide(t, dir, "good.xlsx", salaryHeader)
	bad := writeWide(t, dir, "bad.xlsx", []string{"工号", "1月", "2月"})
	rulePath := filepath.Join(dir, "rule.json")

	_, err := run(t, "rule", "init", good, "-o", rulePath)
	require.NoError(t, err)

	stdout, err := run(t, "rule", "check", rulePath, good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok")

	stdout, err = run(t, "rule", "check", rulePath, good, bad)
	require.Error(t, err)
	assert.Contains(t, stdout, "MISMATCH")
	assert.Contains(t, err.Error(), "1 of 2 files")
}

func TestInspect(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeWide(t, dir, "工资表.xlsx", salaryHeader)

	stdout, err := run(t, "--json", "inspect", in)
	require.NoError(t, err)

	var res inspectResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, salaryHeader, res.Columns)
	assert.Equal(t, 2, res.Rows)

	stdout, err = run(t, "inspect", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 columns, 2 rows")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=b", " c = d "}, "--output")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"a", "b"}, {"c", "d"}}, got)

	for _, bad := range []string{"novalue", "=x", "x="} {
		_, err := parseAssignments([]string{bad}, "--output")
		assert.Error(t, err, bad)
	}
}

func TestMatchInput(t *testing.T) {
	inputs := []core.InputFile{{Path: "/data/一月.xlsx"}, {Path: "/data/二月.xlsx"}}

	for _, key := range []string{"/data/二月.xlsx", "二月.xlsx", "二月"} {
		path, ok := matchInput(inputs, key)
		assert.True(t, ok, key)
		assert.Equal(t, "/data/二月.xlsx", path)
	}
	_, ok := matchInput(inputs, "三月")
	assert.False(t, ok)
}
