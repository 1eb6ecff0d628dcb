package templates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("bad <file>", "", "FILE002"))
	assert.Contains(t, html, "bad &lt;file&gt;")
	assert.Contains(t, html, "Code: FILE002")
	assert.NotContains(t, html, `class="action"`)

	html = render(t, ErrorAlert("m", "retry", "X"))
	assert.Contains(t, html, `<p class="action">retry</p>`)
}

func TestIndex(t *testing.T) {
	data := IndexData{
		DefaultRule: `{"index_column":"</textarea>"}`,
		MaxFileSize: 50 << 20,
	}
	html := render(t, Index(data))
	assert.Contains(t, html, "<title>widelong</title>")
	assert.Contains(t, html, "max 50 MB")
	assert.Contains(t, html, "&lt;/textarea&gt;")
	assert.NotContains(t, html, "Recent runs")

	data.HistoryEnabled = true
	html = render(t, Index(data))
	assert.Contains(t, html, "No conversions yet.")
}

func TestRunTable(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	html := render(t, RunTable([]RunRow{
		{RunID: "a", StartedAt: start, Duration: 1500 * time.Microsecond, Files: 2},
		{RunID: "b", StartedAt: start, Files: 3, Failed: 1, Error: "x & y"},
	}))
	assert.Contains(t, html, `<tr data-status="ok"><td>a</td><td>2026-01-02 03:04:05</td><td>2ms</td><td>2</td><td>0</td>`)
	assert.Contains(t, html, `<tr data-status="failed"><td>b</td>`)
	assert.Contains(t, html, "x &amp; y")
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{0: "unlimited", 512: "512 B", 2048: "2 KB", 3 << 20: "3 MB"}
	for n, want := range tests {
		assert.Equal(t, want, formatSize(n), n)
	}
}
