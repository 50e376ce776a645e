// Package memory implements an in-memory history store backend, useful for
// fast unit tests and for embedding in tooling that doesn't want a database
// file on disk. Unlike the historical mock it replaces, it fully implements
// PruneBranches with the same map-based parent walk the SQLite backend uses.
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/objectfs/historydb/internal/storage"
	"github.com/objectfs/historydb/internal/types"
)

// History is the in-memory implementation of storage.History. There is no
// on-disk format to version, so it always behaves as a current-schema
// database; the legacy read paths exercised against the sqlite backend have
// no analogue here.
type History struct {
	fqrn     string
	writable bool
	txOpen   bool

	tags     map[string]types.Tag
	branches map[string]types.Branch
	seq      map[string]uint64 // insertion sequence per tag name, for List tie-breaking
	nextSeq  uint64
}

var _ storage.History = (*History)(nil)

// New creates a fresh in-memory history database with the given repository
// identity, always opened writable.
func New(fqrn string) *History {
	h := &History{
		fqrn:     fqrn,
		writable: true,
		tags:     make(map[string]types.Tag),
		branches: make(map[string]types.Branch),
		seq:      make(map[string]uint64),
	}
	h.branches[types.TrunkBranch] = types.Branch{Name: types.TrunkBranch, Parent: "", InitialRevision: 0}
	return h
}

func (h *History) Close() error   { return nil }
func (h *History) Writable() bool { return h.writable }
func (h *History) FQRN() string   { return h.fqrn }

func (h *History) BeginTransaction(ctx context.Context) error {
	if !h.writable {
		return types.ErrReadOnly
	}
	if h.txOpen {
		return fmt.Errorf("history: a transaction is already open")
	}
	h.txOpen = true
	return nil
}

func (h *History) CommitTransaction(ctx context.Context) error {
	if !h.txOpen {
		return fmt.Errorf("history: commit transaction: no transaction is open")
	}
	h.txOpen = false
	return nil
}

func (h *History) Insert(ctx context.Context, tag types.Tag) (bool, error) {
	if !h.writable {
		return false, types.ErrReadOnly
	}
	if tag.Name == "" {
		return false, fmt.Errorf("tag name must not be empty")
	}
	if _, exists := h.tags[tag.Name]; exists {
		return false, nil
	}
	if _, ok := h.branches[tag.Branch]; !ok {
		return false, fmt.Errorf("tag %q references unknown branch %q: %w", tag.Name, tag.Branch, types.ErrConstraintViolation)
	}
	h.tags[tag.Name] = tag
	h.nextSeq++
	h.seq[tag.Name] = h.nextSeq
	return true, nil
}

func (h *History) Remove(ctx context.Context, name string) (bool, error) {
	if !h.writable {
		return false, types.ErrReadOnly
	}
	delete(h.tags, name)
	delete(h.seq, name)
	return true, nil
}

func (h *History) Exists(ctx context.Context, name string) (bool, error) {
	_, ok := h.tags[name]
	return ok, nil
}

func (h *History) GetByName(ctx context.Context, name string) (types.Tag, error) {
	t, ok := h.tags[name]
	if !ok {
		return types.Tag{}, fmt.Errorf("tag %q: %w", name, types.ErrNotFound)
	}
	return t, nil
}

func (h *History) GetByDate(ctx context.Context, ts int64) (types.Tag, error) {
	var best types.Tag
	found := false
	for _, t := range h.tags {
		if t.Branch != types.TrunkBranch || t.Timestamp > ts {
			continue
		}
		if !found || t.Timestamp > best.Timestamp {
			best = t
			found = true
		}
	}
	if !found {
		return types.Tag{}, fmt.Errorf("tag by date: %w", types.ErrNotFound)
	}
	return best, nil
}

func (h *History) List(ctx context.Context) ([]types.Tag, error) {
	out := make([]types.Tag, 0, len(h.tags))
	for _, t := range h.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revision != out[j].Revision {
			return out[i].Revision > out[j].Revision
		}
		return h.seq[out[i].Name] > h.seq[out[j].Name]
	})
	return out, nil
}

func (h *History) GetNumberOfTags(ctx context.Context) (int, error) {
	return len(h.tags), nil
}

func (h *History) GetHashes(ctx context.Context) ([]string, error) {
	top := make(map[string]uint64)
	order := []string{}
	for _, t := range h.tags {
		s := t.RootHash.String()
		if rev, ok := top[s]; !ok || t.Revision > rev {
			if !ok {
				order = append(order, s)
			}
			top[s] = t.Revision
		}
	}
	sort.Slice(order, func(i, j int) bool { return top[order[i]] > top[order[j]] })
	return order, nil
}

func (h *History) InsertBranch(ctx context.Context, b types.Branch) (bool, error) {
	if !h.writable {
		return false, types.ErrReadOnly
	}
	if b.Name == types.TrunkBranch {
		return false, fmt.Errorf("cannot insert the trunk branch")
	}
	if _, exists := h.branches[b.Name]; exists {
		return false, nil
	}
	if _, ok := h.branches[b.Parent]; !ok {
		return false, fmt.Errorf("branch %q references unknown parent %q: %w", b.Name, b.Parent, types.ErrConstraintViolation)
	}
	h.branches[b.Name] = b
	return true, nil
}

func (h *History) ListBranches(ctx context.Context) ([]types.Branch, error) {
	out := make([]types.Branch, 0, len(h.branches))
	for _, b := range h.branches {
		out = append(out, b)
	}
	return out, nil
}

func (h *History) ExistsBranch(ctx context.Context, name string) (bool, error) {
	_, ok := h.branches[name]
	return ok, nil
}

func (h *History) GetBranchHead(ctx context.Context, branch string) (types.Tag, error) {
	var best types.Tag
	found := false
	for _, t := range h.tags {
		if t.Branch != branch {
			continue
		}
		if !found || t.Revision > best.Revision {
			best = t
			found = true
		}
	}
	if !found {
		return types.Tag{}, fmt.Errorf("branch %q head: %w", branch, types.ErrNotFound)
	}
	return best, nil
}

// PruneBranches removes every branch with no tags and no surviving
// descendant, re-parenting survivors whose direct parent was pruned onto
// their nearest surviving ancestor.
func (h *History) PruneBranches(ctx context.Context) (bool, error) {
	if !h.writable {
		return false, types.ErrReadOnly
	}

	hasOwnTag := make(map[string]bool)
	for _, t := range h.tags {
		hasOwnTag[t.Branch] = true
	}

	children := make(map[string][]string)
	for _, b := range h.branches {
		if b.Name != types.TrunkBranch {
			children[b.Parent] = append(children[b.Parent], b.Name)
		}
	}

	survives := make(map[string]bool)
	var survivesSubtree func(name string) bool
	survivesSubtree = func(name string) bool {
		if v, ok := survives[name]; ok {
			return v
		}
		if name == types.TrunkBranch {
			survives[name] = true
			return true
		}
		result := hasOwnTag[name]
		if !result {
			for _, c := range children[name] {
				if survivesSubtree(c) {
					result = true
					break
				}
			}
		}
		survives[name] = result
		return result
	}
	for name := range h.branches {
		survivesSubtree(name)
	}

	nearestSurvivingAncestor := func(name string) string {
		p := h.branches[name].Parent
		for p != types.TrunkBranch && !survives[p] {
			p = h.branches[p].Parent
		}
		return p
	}

	for name, b := range h.branches {
		if b.IsTrunk() {
			continue
		}
		if !survives[name] {
			delete(h.branches, name)
			continue
		}
		if !survives[b.Parent] {
			b.Parent = nearestSurvivingAncestor(name)
			h.branches[name] = b
		}
	}
	return true, nil
}

func (h *History) ListTagsAffectedByRollback(ctx context.Context, targetName string) ([]types.Tag, error) {
	target, err := h.GetByName(ctx, targetName)
	if err != nil {
		return nil, err
	}
	var out []types.Tag
	for _, t := range h.tags {
		if t.Branch == target.Branch && (t.Revision > target.Revision || t.Name == target.Name) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revision > out[j].Revision })
	return out, nil
}

func (h *History) Rollback(ctx context.Context, newTag types.Tag) (bool, error) {
	if !h.writable {
		return false, types.ErrReadOnly
	}
	existing, err := h.GetByName(ctx, newTag.Name)
	if err != nil {
		return false, err
	}
	if newTag.Revision <= existing.Revision {
		return false, fmt.Errorf("rollback of %q: new revision %d does not exceed current revision %d: %w",
			newTag.Name, newTag.Revision, existing.Revision, types.ErrConstraintViolation)
	}

	affected, err := h.ListTagsAffectedByRollback(ctx, newTag.Name)
	if err != nil {
		return false, err
	}
	for _, t := range affected {
		delete(h.tags, t.Name)
		delete(h.seq, t.Name)
	}

	newTag.Branch = existing.Branch
	h.tags[newTag.Name] = newTag
	h.nextSeq++
	h.seq[newTag.Name] = h.nextSeq
	return true, nil
}

// ListRecycleBin always reports the bin as available and empty: there is
// no on-disk legacy format to read through here.
func (h *History) ListRecycleBin(ctx context.Context) ([]string, bool, error) {
	return nil, true, nil
}

func (h *History) EmptyRecycleBin(ctx context.Context) error {
	if !h.writable {
		return types.ErrReadOnly
	}
	return nil
}
