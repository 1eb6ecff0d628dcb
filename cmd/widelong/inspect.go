package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type inspectResult struct {
	File    string   `json:"file"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the header and row count of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := a.reader()
			if err != nil {
				return err
			}
			t, err := reader.Read(args[0])
			if err != nil {
				return err
			}

			res := inspectResult{File: args[0], Columns: t.ColumnNames(), Rows: t.NumRows()}
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return a.printJSON(out, res)
			}
			fmt.Fprintf(out, "%s: %d columns, %d rows\n", res.File, len(res.Columns), res.Rows)
			for i, c := range res.Columns {
				fmt.Fprintf(out, "  %2d  %s\n", i+1, quoteSpace(c))
			}
			return nil
		},
	}
}

// quoteSpace quotes names with surrounding whitespace so it is visible.
func quoteSpace(s string) string {
	if strings.TrimSpace(s) != s || s == "" {
		return fmt.Sprintf("%q", s)
	}
	return s
}
