package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/objectfs/historydb/internal/audit"
	"github.com/objectfs/historydb/internal/config"
	"github.com/objectfs/historydb/internal/hash"
	"github.com/objectfs/historydb/internal/storage/sqlite"
	"github.com/objectfs/historydb/internal/types"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Inspect and mutate tags",
}

var tagInsertCmd = &cobra.Command{
	Use:   "insert <name> <root-hash> <revision> <description>",
	Short: "Create a new tag",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")

		h, err := sqlite.OpenWritable(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		rootHash, err := hash.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parse root hash: %w", err)
		}
		revision, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse revision: %w", err)
		}

		ok, err := h.Insert(rootCtx, types.Tag{
			Name:        args[0],
			RootHash:    rootHash,
			Revision:    revision,
			Timestamp:   time.Now().Unix(),
			Description: args[3],
			Branch:      branch,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tag %q already exists", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted tag %s\n", args[0])
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a tag (a no-op if it does not exist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.OpenWritable(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		if _, err := h.Remove(rootCtx, args[0]); err != nil {
			return err
		}
		appendAuditEntry(&audit.Entry{Kind: "tag_remove", TagName: args[0]})
		fmt.Fprintf(cmd.OutOrStdout(), "removed tag %s\n", args[0])
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		tags, err := h.List(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(tags)
		}
		for _, t := range tags {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s rev=%-6d branch=%-12q %s\n", t.Name, t.Revision, t.Branch, t.RootHash.String())
		}
		return nil
	},
}

var tagGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		t, err := h.GetByName(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(t)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "name:        %s\nbranch:      %s\nrevision:    %d\ntimestamp:   %d\nroot_hash:   %s\nsize:        %d\ndescription: %s\n",
			t.Name, t.Branch, t.Revision, t.Timestamp, t.RootHash.String(), t.Size, t.Description)
		return nil
	},
}

var tagAffectedCmd = &cobra.Command{
	Use:   "affected <name>",
	Short: "List the tags a rollback to <name> would discard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		tags, err := h.ListTagsAffectedByRollback(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(tags)
		}
		for _, t := range tags {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s rev=%d\n", t.Name, t.Revision)
		}
		return nil
	},
}

var tagRollbackCmd = &cobra.Command{
	Use:   "rollback <name> <root-hash> <revision>",
	Short: "Discard descendants of <name> and install a new head in its place",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.OpenWritable(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		rootHash, err := hash.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parse root hash: %w", err)
		}
		revision, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse revision: %w", err)
		}

		before, err := h.GetByName(rootCtx, args[0])
		if err != nil {
			return err
		}

		if err := h.BeginTransaction(rootCtx); err != nil {
			return err
		}
		ok, err := h.Rollback(rootCtx, types.Tag{
			Name:      args[0],
			RootHash:  rootHash,
			Revision:  revision,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("rollback of %q did not take effect", args[0])
		}
		if err := h.CommitTransaction(rootCtx); err != nil {
			return err
		}

		appendAuditEntry(&audit.Entry{
			Kind: "rollback", TagName: args[0], Branch: before.Branch,
			OldRevision: before.Revision, NewRevision: revision,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s to revision %d\n", args[0], revision)
		return nil
	},
}

var tagHashesCmd = &cobra.Command{
	Use:   "hashes",
	Short: "List the deduplicated root hashes referenced by all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		hashes, err := h.GetHashes(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(hashes)
		}
		for _, hs := range hashes {
			fmt.Fprintln(cmd.OutOrStdout(), hs)
		}
		return nil
	},
}

func appendAuditEntry(e *audit.Entry) {
	path := config.GetString("audit-log")
	if path == "" {
		return
	}
	log := audit.Open(path, 0, 3)
	defer log.Close()
	_, _ = log.Append(e)
}

func init() {
	tagInsertCmd.Flags().String("branch", types.TrunkBranch, "branch the new tag belongs to")
	tagCmd.AddCommand(tagInsertCmd, tagRemoveCmd, tagListCmd, tagGetCmd, tagAffectedCmd, tagRollbackCmd, tagHashesCmd)
	rootCmd.AddCommand(tagCmd)
}
