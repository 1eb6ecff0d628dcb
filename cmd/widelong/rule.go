package main

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/rules"
	"github.com/spf13/cobra"
)

func newRuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Create or check rule files",
	}
	cmd.AddCommand(newRuleInitCmd(a))
	cmd.AddCommand(newRuleCheckCmd(a))
	return cmd
}

func newRuleInitCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "init FILE",
		Short: "Write a starting rule for FILE",
		Long: `Write a rule that uses the first column of FILE as the index and
expands every other column. The format follows the extension of -o
(.json, .yaml or .yml). Without -o the rule is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := a.reader()
			if err != nil {
				return err
			}
			t, err := reader.Read(args[0])
			if err != nil {
				return err
			}

			rule, err := rules.Init(t.ColumnNames())
			if err != nil {
				return err
			}
			rule.OutputNameTemplate = a.cfg.Convert.NameTemplate
			rule.ValueColumnAlias = a.cfg.Convert.ValueAlias
			rule.DataPrefix = a.cfg.Convert.DataPrefix
			rule.GeneralOutputMap = core.ReconcileOutputMap(rule.GeneralOutputMap, rule)

			if outPath == "" {
				data, err := rules.Encode(rule, rules.FormatJSON)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := rules.Save(outPath, rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (index %q, %d columns)\n",
				outPath, rule.IndexColumn, len(rule.SelectedColumns))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Rule file to write")
	return cmd
}

type checkResult struct {
	File           string   `json:"file"`
	OK             bool     `json:"ok"`
	MissingIndex   bool     `json:"missing_index,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func newRuleCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check RULE FILE...",
		Short: "Check that a rule fits each file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := rules.Load(args[0])
			if err != nil {
				return err
			}
			rule.GeneralOutputMap = core.ReconcileOutputMap(rule.GeneralOutputMap, rule)
			if err := core.CheckRuleComplete(rule); err != nil {
				return err
			}

			reader, err := a.reader()
			if err != nil {
				return err
			}

			var results []checkResult
			failed := 0
			for _, path := range args[1:] {
				res := checkFile(reader, rule, path)
				if !res.OK {
					failed++
				}
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				if err := a.printJSON(out, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.OK {
						fmt.Fprintf(out, "ok        %s\n", r.File)
					} else {
						fmt.Fprintf(out, "MISMATCH  %s: %s\n", r.File, r.Error)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("rule %s does not fit %d of %d files", args[0], failed, len(results))
			}
			return nil
		},
	}
}

func checkFile(reader core.TableReader, rule core.Rule, path string) checkResult {
	res := checkResult{File: path}
	t, err := reader.Read(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := rules.Validate(rule, t.ColumnNames()); err != nil {
		res.Error = err.Error()
		var m *core.RuleMismatchError
		if errors.As(err, &m) {
			res.MissingIndex = m.MissingIndex
			res.MissingColumns = m.MissingColumns
		}
		return res
	}
	res.OK = true
	return res
}
