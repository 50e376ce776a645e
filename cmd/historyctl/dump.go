package main

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/objectfs/historydb/internal/storage/sqlite"
	"github.com/objectfs/historydb/internal/types"
)

// snapshot is the exportable manifest shape for dump, mirroring the tag
// and branch model directly.
type snapshot struct {
	FQRN     string         `toml:"fqrn" yaml:"fqrn"`
	Tags     []types.Tag    `toml:"tags" yaml:"tags"`
	Branches []types.Branch `toml:"branches" yaml:"branches"`
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Export a snapshot of every tag and branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		h, err := sqlite.Open(rootCtx, dbPath)
		if err != nil {
			return err
		}
		defer h.Close()

		tags, err := h.List(rootCtx)
		if err != nil {
			return err
		}
		branches, err := h.ListBranches(rootCtx)
		if err != nil {
			return err
		}
		snap := snapshot{FQRN: h.FQRN(), Tags: tags, Branches: branches}

		switch format {
		case "toml":
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
				return fmt.Errorf("encode toml snapshot: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		case "yaml":
			out, err := yaml.Marshal(snap)
			if err != nil {
				return fmt.Errorf("encode yaml snapshot: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		default:
			return fmt.Errorf("unsupported format %q (use toml or yaml)", format)
		}
	},
}

func init() {
	dumpCmd.Flags().String("format", "toml", "output format: toml or yaml")
	rootCmd.AddCommand(dumpCmd)
}
