package sheet

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable(t *testing.T) *core.Table {
	t.Helper()
	tbl, err := core.NewTable([]string{"序号", "姓名", "金额", "备注"}, [][]core.Cell{
		{core.IntCell(1), core.StringCell("张三"), core.NumberCell(decimal.RequireFromString("1.5")), core.StringCell("007")},
		{core.IntCell(2), core.StringCell("  李四"), core.IntCell(30), core.EmptyCell()},
	})
	require.NoError(t, err)
	return tbl
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()

	path, err := w.Write(sampleTable(t), filepath.Join(dir, "nested", "out"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "out.xlsx"), path)

	got, err := NewReader(0).Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"序号", "姓名", "金额", "备注"}, got.ColumnNames())
	require.Equal(t, 2, got.NumRows())

	row := got.Row(0)
	assert.Equal(t, core.CellNumber, row[0].Kind)
	assert.Equal(t, "1", row[0].String())
	assert.Equal(t, core.CellString, row[1].Kind)
	assert.Equal(t, "张三", row[1].String())
	assert.Equal(t, core.CellNumber, row[2].Kind)
	assert.Equal(t, "1.5", row[2].String())
	assert.Equal(t, core.CellString, row[3].Kind, "numeric-looking text stays text")
	assert.Equal(t, "007", row[3].String())

	row = got.Row(1)
	assert.Equal(t, "  李四", row[1].String(), "leading whitespace preserved")
	assert.Equal(t, "30", row[2].String())
	assert.True(t, row[3].IsEmpty())
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.xlsx")
	w := NewWriter()

	_, err := w.Write(sampleTable(t), path)
	require.NoError(t, err)

	small, err := core.NewTable([]string{"x"}, [][]core.Cell{{core.StringCell("only")}})
	require.NoError(t, err)
	_, err = w.Write(small, path)
	require.NoError(t, err)

	got, err := NewReader(0).Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.ColumnNames())
	assert.Equal(t, 1, got.NumRows())
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter().WriteTo(sampleTable(t), &buf))

	got, err := NewReader(0).ReadBytes("upload.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumRows())
}

func TestWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewWriter().Write(sampleTable(t), filepath.Join(blocker, "out.xlsx"))
	var we *core.WriteError
	assert.ErrorAs(t, err, &we)
}

func TestReadFirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "", "v"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"a", 1, 2.25}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"ignored"}))

	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewReader(0).Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Unnamed: 1", "v"}, got.ColumnNames())
	assert.Equal(t, "2.25", got.Row(0)[2].String())
}

func TestReadCSV(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("姓名,1月,2月\n张三,10,\n李四,30,40,extra\n")...)

	got, err := NewReader(0).ReadBytes("in.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"姓名", "1月", "2月", "Unnamed: 3"}, got.ColumnNames())
	assert.Equal(t, core.CellNumber, got.Row(0)[1].Kind)
	assert.True(t, got.Row(0)[2].IsEmpty())
	assert.Equal(t, "extra", got.Row(1)[3].String())
}

func TestCSVCell(t *testing.T) {
	tests := []struct {
		in   string
		kind core.CellKind
	}{
		{"10", core.CellNumber},
		{"-2.5", core.CellNumber},
		{"0.5", core.CellNumber},
		{"007", core.CellString},
		{"1e3", core.CellString},
		{"1,000", core.CellString},
		{" 12", core.CellString},
		{"+3", core.CellString},
		{".5", core.CellString},
		{"张三", core.CellString},
	}
	for _, tt := range tests {
		got := csvCell(tt.in)
		assert.Equal(t, tt.kind, got.Kind, tt.in)
		assert.Equal(t, tt.in, got.String(), tt.in)
	}
}

func TestCSVNumbersWriteAsNumbers(t *testing.T) {
	got, err := NewReader(0).ReadBytes("in.csv", []byte("k,v\na,12.5\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriter().WriteTo(got, &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
	v, err := f.GetCellValue(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "bad.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))
	big := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(big, bytes.Repeat([]byte("a,b\n"), 100), 0o644))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		want    string
	}{
		{"unsupported extension", filepath.Join(dir, "old.xls"), 0, "unsupported file type"},
		{"missing file", filepath.Join(dir, "missing.xlsx"), 0, "read error"},
		{"corrupt workbook", corrupt, 0, "open workbook"},
		{"too large", big, 10, "file too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.maxSize).Read(tt.path)
			var re *core.ReadError
			require.ErrorAs(t, err, &re)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := NewReader(10).Read(big)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
}

type countingReader struct {
	next  core.TableReader
	calls int
}

func (c *countingReader) Read(path string) (*core.Table, error) {
	c.calls++
	return c.next.Read(path)
}

func TestCachedReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	counter := &countingReader{next: NewReader(0)}
	cached, err := NewCachedReader(counter, 4)
	require.NoError(t, err)

	first, err := cached.Read(path)
	require.NoError(t, err)
	second, err := cached.Read(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, counter.calls)
	assert.Equal(t, 1, cached.Len())

	// A changed file is a new cache key.
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))
	third, err := cached.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, third.ColumnNames())
	assert.Equal(t, 2, counter.calls)

	cached.Purge()
	assert.Equal(t, 0, cached.Len())
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a.XLSX"))
	assert.Equal(t, FormatXLSX, DetectFormat("a.xlsm"))
	assert.Equal(t, FormatCSV, DetectFormat("a.csv"))
	assert.Equal(t, FormatUnknown, DetectFormat("a.xls"))
}
