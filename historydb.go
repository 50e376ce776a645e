// Package historydb provides a minimal public API over the history store:
// named-snapshot tags, branches, and rollback for a content-addressed
// repository.
//
// Most callers only need NewSQLiteHistory or NewMemoryHistory plus the
// History interface; the internal packages hold the implementation.
package historydb

import (
	"context"

	"github.com/objectfs/historydb/internal/hash"
	"github.com/objectfs/historydb/internal/storage"
	"github.com/objectfs/historydb/internal/storage/memory"
	"github.com/objectfs/historydb/internal/storage/sqlite"
	"github.com/objectfs/historydb/internal/types"
)

// History is the unified operation surface shared by every backend.
type History = storage.History

// Tag and Branch are the persisted data model.
type (
	Tag    = types.Tag
	Branch = types.Branch
)

// TrunkBranch is the name of the always-present, immortal branch.
const TrunkBranch = types.TrunkBranch

// Hash is a content hash tagged with an algorithm and a one-byte suffix
// classifying the referenced object.
type Hash = hash.Any

// Sentinel error kinds. Use errors.Is against these.
var (
	ErrNotFound             = types.ErrNotFound
	ErrConstraintViolation  = types.ErrConstraintViolation
	ErrReadOnly             = types.ErrReadOnly
	ErrNotAvailableAtSchema = types.ErrNotAvailableAtSchema
	ErrStorage              = types.ErrStorage
)

// NewSQLiteHistory creates a fresh persistent history database at path.
func NewSQLiteHistory(ctx context.Context, path, fqrn string) (History, error) {
	return sqlite.Create(ctx, path, fqrn)
}

// OpenSQLiteHistory opens an existing persistent history database
// read-only, including legacy on-disk schema revisions.
func OpenSQLiteHistory(ctx context.Context, path string) (History, error) {
	return sqlite.Open(ctx, path)
}

// OpenSQLiteHistoryWritable opens an existing persistent history database
// for read/write, migrating it forward to the current schema revision if
// needed.
func OpenSQLiteHistoryWritable(ctx context.Context, path string) (History, error) {
	return sqlite.OpenWritable(ctx, path)
}

// NewMemoryHistory creates a fresh in-memory history database, useful for
// tests and embedding without a database file on disk.
func NewMemoryHistory(fqrn string) History {
	return memory.New(fqrn)
}
