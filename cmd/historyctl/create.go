package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objectfs/historydb/internal/storage/sqlite"
)

var createCmd = &cobra.Command{
	Use:   "create <path> <fqrn>",
	Short: "Initialize a fresh history database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Create(rootCtx, args[0], args[1])
		if err != nil {
			return err
		}
		defer h.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (fqrn=%s)\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
