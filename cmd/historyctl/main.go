// Command historyctl is a thin operator harness over the history store: it
// exercises the package's full operation surface from the command line, but
// is not itself a product surface.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectfs/historydb/internal/config"
)

var (
	jsonOutput bool
	dbPath     string
	rootCtx    = context.Background()
)

var rootCmd = &cobra.Command{
	Use:   "historyctl",
	Short: "Operate on a named-snapshot history database",
	Long: `historyctl creates, inspects, and mutates a history database: named
tags, branches, and rollback over a content-addressed repository's revisions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if dbPath == "" {
			dbPath = config.GetString("db")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the history database (default: from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
