package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/widelong/internal/config"
	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/logging"
	"github.com/JonMunkholm/widelong/internal/sheet"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "widelong",
		Short: "Reshape wide spreadsheets into long tables",
		Long: `Convert wide spreadsheets (one column per period, metric or category)
into long tables with one row per index value and column.

Commands:
  convert  Convert one or more files with a rule
  inspect  Show the header and row count of a file
  rule     Create or check rule files

Output:
  default  Human-friendly summaries
  --json   JSON for automation

Examples:
  widelong inspect 工资表.xlsx
  widelong rule init 工资表.xlsx -o salary.yaml
  widelong convert --rule salary.yaml --out export 一月.xlsx 二月.xlsx
  widelong convert --index 姓名 --value-alias 月份 工资表.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output JSON instead of human-formatted summaries")

	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newRuleCmd(a))
	return root
}

// init loads .env and the configuration, then sets up logging on logw.
func (a *app) init(logw io.Writer) error {
	// A missing .env is normal; explicit env vars win over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logw, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(a.logger)
	return nil
}

// reader returns a cached table reader sized from the configuration.
func (a *app) reader() (core.TableReader, error) {
	base := sheet.NewReader(a.cfg.Convert.MaxFileSize)
	return sheet.NewCachedReader(base, a.cfg.Convert.CacheSize)
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
