// Command widelong converts wide spreadsheets into long tables from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/widelong/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}
