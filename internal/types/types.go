// Package types holds the data model and sentinel errors shared by every
// history store backend.
package types

import "github.com/objectfs/historydb/internal/hash"

// TrunkBranch is the name of the always-present, immortal branch.
const TrunkBranch = ""

// Tag is a named, immutable reference to one revision of a repository.
type Tag struct {
	Name        string
	RootHash    hash.Any
	Size        uint64
	Revision    uint64
	Timestamp   int64
	Description string
	Branch      string
}

// Branch is a named line of revisions forked from a parent branch at a
// given initial revision. The trunk branch has an empty Name and Parent.
type Branch struct {
	Name            string
	Parent          string
	InitialRevision uint64
}

// IsTrunk reports whether b is the immortal trunk branch.
func (b Branch) IsTrunk() bool {
	return b.Name == TrunkBranch
}
