package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/history"
	"github.com/JonMunkholm/widelong/internal/rules"
	"github.com/JonMunkholm/widelong/internal/sheet"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	rulePath    string
	outDir      string
	index       string
	columns     []string
	indexAlias  string
	valueAlias  string
	mode        string
	serial      bool
	trim        bool
	prefix      string
	template    string
	valueNames  []string
	outputNames []string
	noHistory   bool
}

func newConvertCmd(a *app) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert wide spreadsheets into long tables",
		Long: `Convert every FILE with one rule and write one .xlsx per input.

The rule comes from --rule, from flags, or both: flags override the loaded
rule. Without --columns every column except the index is expanded.

All files must share the same header. If any file cannot be read or has a
different header, nothing is written. A failure while writing one file does
not stop the others; the command then exits non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.rulePath, "rule", "r", "", "Rule file (.json, .yaml or .yml)")
	f.StringVarP(&opts.outDir, "out", "o", "", "Output directory (default from CONVERT_OUTPUT_DIR)")
	f.StringVar(&opts.index, "index", "", "Index column")
	f.StringSliceVar(&opts.columns, "columns", nil, "Columns to expand, comma-separated")
	f.StringVar(&opts.indexAlias, "index-alias", "", "Output name of the index column")
	f.StringVar(&opts.valueAlias, "value-alias", "", "Output name of the column holding the expanded column names")
	f.StringVar(&opts.mode, "mode", "", "Row order: index_then_value or value_then_index")
	f.BoolVar(&opts.serial, "serial", true, "Add a serial number column")
	f.BoolVar(&opts.trim, "trim", true, "Trim values and mark leading whitespace with --prefix")
	f.StringVar(&opts.prefix, "prefix", "", "Marker written once per leading whitespace character")
	f.StringVar(&opts.template, "template", "", "Output file name template; {basename} is the input name")
	f.StringArrayVar(&opts.valueNames, "value-name", nil, "Value column header per file as base=header (repeatable)")
	f.StringArrayVar(&opts.outputNames, "output", nil, "Output file name per input as file=name (repeatable)")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record the run even when DATABASE_URL is set")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, opts *convertOptions, files []string) error {
	reader, err := a.reader()
	if err != nil {
		return err
	}

	base, err := a.baseRule(opts.rulePath)
	if err != nil {
		return err
	}
	session := core.NewSession(base)

	var columns []string
	for _, path := range files {
		t, err := reader.Read(path)
		if err != nil {
			return err
		}
		if columns == nil {
			columns = t.ColumnNames()
		}
		session.AddInput(path, t.ColumnNames())
	}

	rule, err := applyRuleFlags(cmd, opts, base, columns)
	if err != nil {
		return err
	}
	if core.NormalizeColumnName(rule.IndexColumn) == "" {
		return &core.ConfigurationError{Reason: "no index column selected: pass --index or --rule"}
	}
	if err := session.ApplyRule(rule); err != nil {
		return err
	}

	valueNames, err := parseAssignments(opts.valueNames, "--value-name")
	if err != nil {
		return err
	}
	for _, kv := range valueNames {
		base := kv[0]
		if path, ok := matchInput(session.Inputs(), base); ok {
			base = core.BaseName(path)
		}
		session.SetValueName(base, kv[1])
	}

	outputNames, err := parseAssignments(opts.outputNames, "--output")
	if err != nil {
		return err
	}
	for _, kv := range outputNames {
		path, ok := matchInput(session.Inputs(), kv[0])
		if !ok || !session.SetOutputName(path, kv[1]) {
			return fmt.Errorf("--output %s=%s: no such input file", kv[0], kv[1])
		}
	}

	// Flags and rule file are the operator's confirmation.
	session.Confirm()
	plan, err := session.Snapshot()
	if err != nil {
		return err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = a.cfg.Convert.OutputDir
	}

	serviceOpts := []core.Option{core.WithLogger(a.logger)}
	if !opts.noHistory {
		pool, store, err := history.Open(cmd.Context(), a.cfg.Database)
		switch {
		case errors.Is(err, history.ErrDisabled):
		case err != nil:
			a.logger.Warn("run history unavailable", "error", err)
		default:
			defer pool.Close()
			serviceOpts = append(serviceOpts, core.WithRecorder(store))
		}
	}

	svc := core.NewService(reader, sheet.NewWriter(), serviceOpts...)
	result, err := svc.RunBatch(cmd.Context(), plan, outDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		if err := a.printJSON(out, result); err != nil {
			return err
		}
	} else {
		printBatch(out, result)
	}

	if !result.OK() {
		return fmt.Errorf("%d of %d files failed", result.Failed(), len(result.Files))
	}
	return nil
}

// baseRule loads the rule file, or builds the configured default rule.
func (a *app) baseRule(path string) (core.Rule, error) {
	if path != "" {
		return rules.Load(path)
	}
	r := core.DefaultRule()
	r.OutputNameTemplate = a.cfg.Convert.NameTemplate
	r.ValueColumnAlias = a.cfg.Convert.ValueAlias
	r.DataPrefix = a.cfg.Convert.DataPrefix
	return r, nil
}

// applyRuleFlags overrides rule with every flag the user set. When no
// columns are selected, every column but the index is.
func applyRuleFlags(cmd *cobra.Command, opts *convertOptions, rule core.Rule, columns []string) (core.Rule, error) {
	r := rule.Clone()
	f := cmd.Flags()

	if f.Changed("index") {
		r.IndexColumn = core.NormalizeColumnName(opts.index)
	}
	if f.Changed("columns") {
		r.SelectedColumns = nil
		for _, c := range opts.columns {
			if c = core.NormalizeColumnName(c); c != "" {
				r.SelectedColumns = append(r.SelectedColumns, c)
			}
		}
	}
	if f.Changed("index-alias") {
		r.IndexAlias = opts.indexAlias
	}
	if f.Changed("value-alias") {
		r.ValueColumnAlias = opts.valueAlias
	}
	if f.Changed("mode") {
		mode, err := core.ParseExpandMode(opts.mode)
		if err != nil {
			return core.Rule{}, err
		}
		r.ExpandMode = mode
	}
	if f.Changed("serial") {
		r.EnableSerialNumber = opts.serial
	}
	if f.Changed("trim") {
		r.EnableTrimAndPrefix = opts.trim
	}
	if f.Changed("prefix") {
		r.DataPrefix = opts.prefix
	}
	if f.Changed("template") {
		r.OutputNameTemplate = opts.template
	}

	if len(r.SelectedColumns) == 0 && r.IndexColumn != "" {
		idx := core.NormalizeColumnName(r.IndexColumn)
		for _, c := range columns {
			if c = core.NormalizeColumnName(c); c != idx {
				r.SelectedColumns = append(r.SelectedColumns, c)
			}
		}
	}
	return r, nil
}

// parseAssignments splits key=value flag values.
func parseAssignments(values []string, flag string) ([][2]string, error) {
	out := make([][2]string, 0, len(values))
	for _, v := range values {
		key, val, ok := strings.Cut(v, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			return nil, fmt.Errorf("%s %q: want key=value", flag, v)
		}
		out = append(out, [2]string{key, val})
	}
	return out, nil
}

// matchInput finds the input whose path, file name or base name is key.
func matchInput(inputs []core.InputFile, key string) (string, bool) {
	for _, in := range inputs {
		if in.Path == key || filepath.Base(in.Path) == key || core.BaseName(in.Path) == key {
			return in.Path, true
		}
	}
	return "", false
}

func printBatch(w io.Writer, result core.BatchResult) {
	for _, f := range result.Files {
		if f.OK() {
			fmt.Fprintf(w, "ok    %s -> %s (%d rows)\n", f.Input, f.Output, f.Rows)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s: %s\n", f.Input, f.Error)
		if f.Err != nil && core.IsUserFacing(f.Err) {
			fmt.Fprintf(w, "      %s\n", core.FormatUserError(f.Err))
		}
	}
	fmt.Fprintf(w, "run %s: %d converted, %d failed in %s\n",
		result.RunID, result.Succeeded(), result.Failed(), result.Duration.Round(time.Millisecond))
}
