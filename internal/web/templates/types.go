// Package templates holds the HTML views of the conversion UI. The
// components are written in .templ files; run `templ generate` after
// editing them.
package templates

import (
	"fmt"
	"time"
)

// RunRow is one line of the recent-runs table.
type RunRow struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Files     int
	Failed    int
	Error     string
}

// IndexData is everything the index page shows.
type IndexData struct {
	DefaultRule    string
	HistoryEnabled bool
	Runs           []RunRow
	MaxFileSize    int64
}

func runStatus(r RunRow) string {
	if r.Failed > 0 || r.Error != "" {
		return "failed"
	}
	return "ok"
}

func startedAt(r RunRow) string {
	return r.StartedAt.Format("2006-01-02 15:04:05")
}

func took(r RunRow) string {
	return r.Duration.Round(time.Millisecond).String()
}

func formatSize(n int64) string {
	switch {
	case n <= 0:
		return "unlimited"
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
