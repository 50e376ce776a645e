package sqlite

import (
	"fmt"

	"github.com/objectfs/historydb/internal/types"
)

// validateTagName rejects the one shape of tag that can never be valid
// regardless of schema or branch state.
func validateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	return nil
}

// validateBranchName rejects non-trunk branch insertion with an empty name;
// the trunk itself is seeded by schema initialization, never by InsertBranch.
func validateBranchName(b types.Branch) error {
	if b.Name == types.TrunkBranch {
		return fmt.Errorf("cannot insert the trunk branch")
	}
	return nil
}
