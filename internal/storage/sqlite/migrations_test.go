package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/objectfs/historydb/internal/types"
)

// createLegacyDB builds a fixture database at the given on-disk schema
// revision by running the legacy DDL directly, mirroring what a database
// written by an older release would actually contain on disk.
func createLegacyDB(t *testing.T, revision int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy fixture: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE properties (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		CREATE TABLE tags (
			name        TEXT PRIMARY KEY,
			root_hash   TEXT NOT NULL,
			revision    INTEGER NOT NULL,
			timestamp   INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		t.Fatalf("create v1r0 fixture: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO properties (key, value) VALUES ('schema_revision', '0'), ('fqrn', 'legacy.repository')`); err != nil {
		t.Fatalf("seed v1r0 properties: %v", err)
	}

	if revision >= 1 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE tags ADD COLUMN size INTEGER NOT NULL DEFAULT 0`); err != nil {
			t.Fatalf("upgrade to v1r1: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE properties SET value='1' WHERE key='schema_revision'`); err != nil {
			t.Fatalf("stamp v1r1: %v", err)
		}
	}
	if revision >= 2 {
		if _, err := db.ExecContext(ctx, `CREATE TABLE recycle_bin (hash TEXT NOT NULL)`); err != nil {
			t.Fatalf("upgrade to v1r2: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE properties SET value='2' WHERE key='schema_revision'`); err != nil {
			t.Fatalf("stamp v1r2: %v", err)
		}
	}
	return path
}

func TestDetectRevision(t *testing.T) {
	ctx := context.Background()
	for _, rev := range []int{0, 1, 2} {
		path := createLegacyDB(t, rev)
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			t.Fatalf("open fixture: %v", err)
		}
		got, err := detectRevision(ctx, db)
		db.Close()
		if err != nil {
			t.Fatalf("detectRevision(r%d): %v", rev, err)
		}
		if got != rev {
			t.Errorf("detectRevision(r%d) = %d", rev, got)
		}
	}
}

func TestOpenReadOnlyLegacyV1R0(t *testing.T) {
	ctx := context.Background()
	path := createLegacyDB(t, 0)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO tags (name, root_hash, revision, timestamp, description) VALUES ('r1', '1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaC', 1, 100, 'first')`); err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	db.Close()

	h, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open(v1r0): %v", err)
	}
	defer h.Close()

	if h.FQRN() != "legacy.repository" {
		t.Errorf("FQRN = %q", h.FQRN())
	}

	tag, err := h.GetByName(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if tag.Size != 0 {
		t.Errorf("expected size 0 on v1r0 fixture, got %d", tag.Size)
	}
	if tag.Branch != "" {
		t.Errorf("expected implicit trunk branch, got %q", tag.Branch)
	}

	branches, err := h.ListBranches(ctx)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 1 || branches[0].Name != "" {
		t.Errorf("expected a single synthetic trunk branch, got %+v", branches)
	}

	_, available, err := h.ListRecycleBin(ctx)
	if !errors.Is(err, types.ErrNotAvailableAtSchema) {
		t.Fatalf("ListRecycleBin err = %v, want types.ErrNotAvailableAtSchema", err)
	}
	if available {
		t.Error("recycle bin should not be available at v1r0")
	}
}

func TestOpenReadOnlyLegacyV1R2RecycleBin(t *testing.T) {
	ctx := context.Background()
	path := createLegacyDB(t, 2)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO recycle_bin (hash) VALUES ('1deaddeaddeaddeaddeaddeaddeaddeaddeaddeadC')`); err != nil {
		t.Fatalf("seed recycle bin: %v", err)
	}
	db.Close()

	h, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open(v1r2): %v", err)
	}
	defer h.Close()

	hashes, available, err := h.ListRecycleBin(ctx)
	if err != nil {
		t.Fatalf("ListRecycleBin: %v", err)
	}
	if !available {
		t.Fatal("recycle bin should be available at v1r2")
	}
	if len(hashes) != 1 {
		t.Fatalf("expected 1 recycle bin entry, got %d", len(hashes))
	}
}

func TestMigrateLegacyToCurrent(t *testing.T) {
	ctx := context.Background()

	for _, rev := range []int{0, 1, 2} {
		path := createLegacyDB(t, rev)

		h, err := OpenWritable(ctx, path)
		if err != nil {
			t.Fatalf("OpenWritable(r%d): %v", rev, err)
		}

		got, err := h.revision(ctx)
		if err != nil {
			t.Fatalf("revision(r%d): %v", rev, err)
		}
		if got != schemaRevision {
			t.Errorf("revision after migrating r%d = %d, want %d", rev, got, schemaRevision)
		}

		if h.FQRN() != "legacy.repository" {
			t.Errorf("FQRN not preserved across migration from r%d: got %q", rev, h.FQRN())
		}

		branches, err := h.ListBranches(ctx)
		if err != nil {
			t.Fatalf("ListBranches after migrating r%d: %v", rev, err)
		}
		if len(branches) != 1 || branches[0].Name != "" {
			t.Errorf("expected only trunk branch after migrating r%d, got %+v", rev, branches)
		}

		_, available, err := h.ListRecycleBin(ctx)
		if err != nil {
			t.Fatalf("ListRecycleBin after migrating r%d: %v", rev, err)
		}
		if !available {
			t.Errorf("recycle bin should read as available (and empty) on current schema after migrating r%d", rev)
		}

		if err := h.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		// Re-opening an already-migrated database is a no-op.
		h2, err := OpenWritable(ctx, path)
		if err != nil {
			t.Fatalf("re-OpenWritable(r%d): %v", rev, err)
		}
		got2, err := h2.revision(ctx)
		if err != nil {
			t.Fatalf("revision after no-op migration: %v", err)
		}
		if got2 != schemaRevision {
			t.Errorf("revision after no-op migration = %d, want %d", got2, schemaRevision)
		}
		h2.Close()
	}
}
