package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/objectfs/historydb/internal/storage/sqlite"
	"github.com/objectfs/historydb/internal/types"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Inspect and mutate branches",
}

var branchInsertCmd = &cobra.Command{
	Use:   "insert <name> <parent> <initial-revision>",
	Short: "Fork a new branch from parent at initial-revision",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.OpenWritable(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		initialRevision, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse initial revision: %w", err)
		}

		ok, err := h.InsertBranch(rootCtx, types.Branch{
			Name: args[0], Parent: args[1], InitialRevision: initialRevision,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("branch %q already exists", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted branch %s (parent=%s)\n", args[0], args[1])
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		branches, err := h.ListBranches(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(branches)
		}
		for _, b := range branches {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s parent=%-20s initial_revision=%d\n", b.Name, b.Parent, b.InitialRevision)
		}
		return nil
	},
}

var branchHeadCmd = &cobra.Command{
	Use:   "head <name>",
	Short: "Show the tag with the largest revision on a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		t, err := h.GetBranchHead(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(t)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rev=%d\n", t.Name, t.Revision)
		return nil
	},
}

var branchPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove branches with no tags and no surviving descendant",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.OpenWritable(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		if err := h.BeginTransaction(rootCtx); err != nil {
			return err
		}
		if _, err := h.PruneBranches(rootCtx); err != nil {
			return err
		}
		if err := h.CommitTransaction(rootCtx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "pruned empty branches")
		return nil
	},
}

func init() {
	branchCmd.AddCommand(branchInsertCmd, branchListCmd, branchHeadCmd, branchPruneCmd)
	rootCmd.AddCommand(branchCmd)
}
