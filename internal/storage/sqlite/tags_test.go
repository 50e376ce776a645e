package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/objectfs/historydb/internal/hash"
	"github.com/objectfs/historydb/internal/types"
)

func newHistory(t *testing.T, fqrn string) *History {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := Create(ctx, path, fqrn)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func sampleHash(b byte) hash.Any {
	digest := make([]byte, 32)
	digest[0] = b
	return hash.MakeCatalog(hash.AlgorithmSHA256, digest)
}

func TestInsertAndGetByName(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	tag := types.Tag{Name: "r1", RootHash: sampleHash(1), Size: 1024, Revision: 1, Timestamp: 1000, Description: "first", Branch: types.TrunkBranch}
	ok, err := h.Insert(ctx, tag)
	if err != nil || !ok {
		t.Fatalf("Insert: ok=%v err=%v", ok, err)
	}

	got, err := h.GetByName(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.Name != tag.Name || got.Size != tag.Size || got.Revision != tag.Revision || got.Description != tag.Description {
		t.Errorf("GetByName = %+v, want %+v", got, tag)
	}
	if !got.RootHash.Equal(tag.RootHash) {
		t.Errorf("RootHash = %v, want %v", got.RootHash, tag.RootHash)
	}
}

func TestInsertDuplicateNameFails(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	tag := types.Tag{Name: "r1", RootHash: sampleHash(1), Revision: 1, Timestamp: 1000, Branch: types.TrunkBranch}
	if ok, err := h.Insert(ctx, tag); err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	ok, err := h.Insert(ctx, tag)
	if err != nil {
		t.Fatalf("duplicate insert returned error instead of false: %v", err)
	}
	if ok {
		t.Error("duplicate insert unexpectedly succeeded")
	}
}

func TestInsertUnknownBranchFails(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	tag := types.Tag{Name: "r1", RootHash: sampleHash(1), Revision: 1, Timestamp: 1000, Branch: "no-such-branch"}
	ok, err := h.Insert(ctx, tag)
	if ok {
		t.Error("insert on unknown branch unexpectedly succeeded")
	}
	if err == nil {
		t.Fatal("expected error referencing unknown branch")
	}
}

func TestRemoveTag(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	tag := types.Tag{Name: "r1", RootHash: sampleHash(1), Revision: 1, Timestamp: 1000, Branch: types.TrunkBranch}
	if _, err := h.Insert(ctx, tag); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if ok, err := h.Remove(ctx, "r1"); err != nil || !ok {
		t.Fatalf("Remove: ok=%v err=%v", ok, err)
	}
	if exists, err := h.Exists(ctx, "r1"); err != nil || exists {
		t.Fatalf("tag still exists after removal: exists=%v err=%v", exists, err)
	}

	// Removing an absent name is a successful no-op.
	if ok, err := h.Remove(ctx, "never-existed"); err != nil || !ok {
		t.Fatalf("Remove(absent): ok=%v err=%v", ok, err)
	}
}

func TestGetByDate(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	for i, ts := range []int64{1000, 2000, 3000} {
		tag := types.Tag{Name: tagName(i), RootHash: sampleHash(byte(i)), Revision: uint64(i + 1), Timestamp: ts, Branch: types.TrunkBranch}
		if _, err := h.Insert(ctx, tag); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := h.GetByDate(ctx, 2500)
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if got.Timestamp != 2000 {
		t.Errorf("GetByDate(2500) = timestamp %d, want 2000", got.Timestamp)
	}

	if _, err := h.GetByDate(ctx, 500); err == nil {
		t.Error("expected error for date before any tag")
	}
}

func tagName(i int) string {
	return []string{"r0", "r1", "r2"}[i]
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	for i := 1; i <= 3; i++ {
		tag := types.Tag{Name: tagName(i - 1), RootHash: sampleHash(byte(i)), Revision: uint64(i), Timestamp: int64(i * 1000), Branch: types.TrunkBranch}
		if _, err := h.Insert(ctx, tag); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	tags, err := h.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}
	for i := 0; i < len(tags)-1; i++ {
		if tags[i].Revision < tags[i+1].Revision {
			t.Errorf("List not in descending revision order: %+v", tags)
		}
	}
}

func TestGetHashesDeduplicates(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	shared := sampleHash(9)
	if _, err := h.Insert(ctx, types.Tag{Name: "r1", RootHash: shared, Revision: 1, Timestamp: 1000, Branch: types.TrunkBranch}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := h.Insert(ctx, types.Tag{Name: "r2", RootHash: shared, Revision: 2, Timestamp: 2000, Branch: types.TrunkBranch}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := h.Insert(ctx, types.Tag{Name: "r3", RootHash: sampleHash(10), Revision: 3, Timestamp: 3000, Branch: types.TrunkBranch}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	hashes, err := h.GetHashes(ctx)
	if err != nil {
		t.Fatalf("GetHashes: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("expected 2 distinct hashes, got %d: %v", len(hashes), hashes)
	}
}

func TestReadOnlyHandleRejectsWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	creating, err := Create(ctx, path, "test.repository")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	creating.Close()

	h, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, err := h.Insert(ctx, types.Tag{Name: "r1", Revision: 1, Branch: types.TrunkBranch}); err == nil {
		t.Error("expected write against read-only handle to fail")
	}
}
