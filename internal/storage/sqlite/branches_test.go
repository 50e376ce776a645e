package sqlite

import (
	"context"
	"testing"

	"github.com/objectfs/historydb/internal/types"
)

func TestInsertBranchAndHead(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	if _, err := h.Insert(ctx, types.Tag{Name: "trunk1", Revision: 1, Timestamp: 1000, Branch: types.TrunkBranch}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ok, err := h.InsertBranch(ctx, types.Branch{Name: "feature", Parent: types.TrunkBranch, InitialRevision: 1})
	if err != nil || !ok {
		t.Fatalf("InsertBranch: ok=%v err=%v", ok, err)
	}

	if _, err := h.Insert(ctx, types.Tag{Name: "feat1", Revision: 2, Timestamp: 2000, Branch: "feature"}); err != nil {
		t.Fatalf("Insert on branch: %v", err)
	}

	head, err := h.GetBranchHead(ctx, "feature")
	if err != nil {
		t.Fatalf("GetBranchHead: %v", err)
	}
	if head.Name != "feat1" {
		t.Errorf("GetBranchHead(feature) = %q, want feat1", head.Name)
	}

	trunkHead, err := h.GetBranchHead(ctx, types.TrunkBranch)
	if err != nil {
		t.Fatalf("GetBranchHead(trunk): %v", err)
	}
	if trunkHead.Name != "trunk1" {
		t.Errorf("GetBranchHead(trunk) = %q, want trunk1", trunkHead.Name)
	}
}

func TestInsertBranchUnknownParentFails(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	ok, err := h.InsertBranch(ctx, types.Branch{Name: "orphan", Parent: "nowhere", InitialRevision: 1})
	if ok {
		t.Error("InsertBranch with unknown parent unexpectedly succeeded")
	}
	if err == nil {
		t.Fatal("expected error for unknown parent")
	}
}

func TestInsertBranchRejectsTrunk(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	if _, err := h.InsertBranch(ctx, types.Branch{Name: types.TrunkBranch, Parent: types.TrunkBranch}); err == nil {
		t.Error("expected error inserting trunk branch explicitly")
	}
}

func TestGetBranchHeadEmptyBranchNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	if _, err := h.InsertBranch(ctx, types.Branch{Name: "empty", Parent: types.TrunkBranch, InitialRevision: 1}); err != nil {
		t.Fatalf("InsertBranch: %v", err)
	}
	if _, err := h.GetBranchHead(ctx, "empty"); err == nil {
		t.Error("expected NotFound for a branch with no tags")
	}
}

// TestPruneBranchesReparents builds trunk -> a -> b -> c where only c
// carries a tag, then prunes with a's tag removed so a itself has none.
// Pruning must delete a and re-parent b directly onto trunk, since b (via
// c) still carries a surviving tag.
func TestPruneBranchesReparents(t *testing.T) {
	ctx := context.Background()
	h := newHistory(t, "test.repository")

	if _, err := h.InsertBranch(ctx, types.Branch{Name: "a", Parent: types.TrunkBranch, InitialRevision: 1}); err != nil {
		t.Fatalf("InsertBranch(a): %v", err)
	}
	if _, err := h.InsertBranch(ctx, types.Branch{Name: "b", Parent: "a", InitialRevision: 1}); err != nil {
		t.Fatalf("InsertBranch(b): %v", err)
	}
	if _, err := h.InsertBranch(ctx, types.Branch{Name: "c", Parent: "b", InitialRevision: 1}); err != nil {
		t.Fatalf("InsertBranch(c): %v", err)
	}
	if _, err := h.InsertBranch(ctx, types.Branch{Name: "dead", Parent: types.TrunkBranch, InitialRevision: 1}); err != nil {
		t.Fatalf("InsertBranch(dead): %v", err)
	}
	if _, err := h.Insert(ctx, types.Tag{Name: "ctag", Revision: 5, Timestamp: 5000, Branch: "c"}); err != nil {
		t.Fatalf("Insert(ctag): %v", err)
	}

	if err := h.BeginTransaction(ctx); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if ok, err := h.PruneBranches(ctx); err != nil || !ok {
		t.Fatalf("PruneBranches: ok=%v err=%v", ok, err)
	}
	if err := h.CommitTransaction(ctx); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}

	if exists, err := h.ExistsBranch(ctx, "a"); err != nil || exists {
		t.Errorf("branch a should have been pruned: exists=%v err=%v", exists, err)
	}
	if exists, err := h.ExistsBranch(ctx, "dead"); err != nil || exists {
		t.Errorf("branch dead should have been pruned: exists=%v err=%v", exists, err)
	}
	if exists, err := h.ExistsBranch(ctx, "b"); err != nil || !exists {
		t.Fatalf("branch b should survive: exists=%v err=%v", exists, err)
	}
	if exists, err := h.ExistsBranch(ctx, "c"); err != nil || !exists {
		t.Fatalf("branch c should survive: exists=%v err=%v", exists, err)
	}

	branches, err := h.ListBranches(ctx)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	var bParent string
	found := false
	for _, br := range branches {
		if br.Name == "b" {
			bParent = br.Parent
			found = true
		}
	}
	if !found {
		t.Fatal("branch b missing from ListBranches")
	}
	if bParent != types.TrunkBranch {
		t.Errorf("branch b should be re-parented onto trunk, got parent %q", bParent)
	}
}
