package core

// errors.go defines the error kinds surfaced by conversions.
//
// Errors fall into two propagation classes:
//  1. Fatal before output: ConfigurationError, RuleMismatchError,
//     HeaderMismatchError, and a ReadError raised during the batch pre-check.
//  2. Isolated per file: ReadError/WriteError raised while the batch write
//     loop runs. These are recorded on the file's result and the loop moves on.

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports a local precondition failure. The operation
// that raised it was not attempted.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ReadError reports a file that could not be read as a table.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error: %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports an output file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error: %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RuleMismatchError reports a rule that references columns the current
// file does not have. The rule is rejected as a whole.
type RuleMismatchError struct {
	IndexColumn    string
	MissingIndex   bool
	MissingColumns []string
}

func (e *RuleMismatchError) Error() string {
	var parts []string
	if e.MissingIndex {
		parts = append(parts, fmt.Sprintf("index column %q not found", e.IndexColumn))
	}
	if len(e.MissingColumns) > 0 {
		parts = append(parts, fmt.Sprintf("columns not found: %s", strings.Join(e.MissingColumns, ", ")))
	}
	return "rule mismatch: " + strings.Join(parts, "; ")
}

// HeaderMismatchError reports a batch file whose column set differs from the
// first file of the batch.
type HeaderMismatchError struct {
	Path    string
	Missing []string // in the first file, not in Path
	Extra   []string // in Path, not in the first file
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("header mismatch: %s differs from the first file (missing: [%s], extra: [%s])",
		e.Path, strings.Join(e.Missing, ", "), strings.Join(e.Extra, ", "))
}

// newHeaderMismatch diffs two normalized column sets.
func newHeaderMismatch(path string, want, got []string) *HeaderMismatchError {
	ws, gs := ColumnSet(want), ColumnSet(got)
	e := &HeaderMismatchError{Path: path}
	for k := range ws {
		if !gs[k] {
			e.Missing = append(e.Missing, k)
		}
	}
	for k := range gs {
		if !ws[k] {
			e.Extra = append(e.Extra, k)
		}
	}
	sort.Strings(e.Missing)
	sort.Strings(e.Extra)
	return e
}

// ValidateRuleColumns checks that the rule's index column and every selected
// column exist in columns. Names are compared after trimming.
func ValidateRuleColumns(rule Rule, columns []string) error {
	set := ColumnSet(columns)
	idx := NormalizeColumnName(rule.IndexColumn)

	e := &RuleMismatchError{IndexColumn: idx}
	if idx == "" || !set[idx] {
		e.MissingIndex = true
	}
	for _, c := range rule.SelectedColumns {
		if n := NormalizeColumnName(c); !set[n] {
			e.MissingColumns = append(e.MissingColumns, n)
		}
	}
	if e.MissingIndex || len(e.MissingColumns) > 0 {
		return e
	}
	return nil
}
