// Package sqlite implements the persistent history store backend on top of
// an embedded, CGo-free SQLite engine, including forward migration across
// three legacy on-disk schema revisions.
package sqlite

import "github.com/objectfs/historydb/internal/storage"

var _ storage.History = (*History)(nil)
