package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile, "config", "config.json5",
		"Path to the bidwatch configuration file.",
	)
}

var rootCmd = &cobra.Command{
	Use:   "bidwatch",
	Short: "bidwatch watches the Yichang trading platform and publishes award artifacts to a git repository.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
