package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/objectfs/historydb/internal/types"
)

const branchColumns = `name, parent, initial_revision`

func scanBranch(row interface{ Scan(dest ...any) error }) (types.Branch, error) {
	var b types.Branch
	if err := row.Scan(&b.Name, &b.Parent, &b.InitialRevision); err != nil {
		return types.Branch{}, err
	}
	return b, nil
}

// InsertBranch adds a new branch. It fails with (false, nil) if a branch
// with the same name already exists, and with an error wrapping
// types.ErrConstraintViolation if its parent does not exist (I3).
func (h *History) InsertBranch(ctx context.Context, b types.Branch) (bool, error) {
	if !h.writable {
		return false, errReadOnly()
	}
	if err := validateBranchName(b); err != nil {
		return false, err
	}

	parentExists, err := h.ExistsBranch(ctx, b.Parent)
	if err != nil {
		return false, err
	}
	if !parentExists {
		return false, fmt.Errorf("branch %q references unknown parent %q: %w", b.Name, b.Parent, types.ErrConstraintViolation)
	}

	_, err = h.q().ExecContext(ctx,
		`INSERT INTO branches (name, parent, initial_revision) VALUES (?, ?, ?)`,
		b.Name, b.Parent, b.InitialRevision)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert branch %q: %w", b.Name, err)
	}
	return true, nil
}

// ListBranches returns every branch, including the trunk.
func (h *History) ListBranches(ctx context.Context) ([]types.Branch, error) {
	// Legacy (v1r0/v1r1/v1r2) databases opened read-only have no branches
	// table at all; the trunk is still implicitly present.
	hasTable, err := h.hasBranchesTable(ctx)
	if err != nil {
		return nil, err
	}
	if !hasTable {
		return []types.Branch{{Name: types.TrunkBranch, Parent: "", InitialRevision: 0}}, nil
	}

	rows, err := h.q().QueryContext(ctx, `SELECT `+branchColumns+` FROM branches`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []types.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	if len(out) == 0 {
		// Legacy (v1r0/v1r1/v1r2) databases opened read-only have no
		// branches table at all; the trunk is still implicitly present.
		hasTable, err := h.hasBranchesTable(ctx)
		if err != nil {
			return nil, err
		}
		if !hasTable {
			return []types.Branch{{Name: types.TrunkBranch, Parent: "", InitialRevision: 0}}, nil
		}
	}
	return out, nil
}

// ExistsBranch reports whether a branch with the given name is present.
func (h *History) ExistsBranch(ctx context.Context, name string) (bool, error) {
	hasTable, err := h.hasBranchesTable(ctx)
	if err != nil {
		return false, err
	}
	if !hasTable {
		return name == types.TrunkBranch, nil
	}
	var n int
	err = h.q().QueryRowContext(ctx, `SELECT count(*) FROM branches WHERE name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check branch %q: %w", name, err)
	}
	return n > 0, nil
}

func (h *History) hasBranchesTable(ctx context.Context) (bool, error) {
	var n int
	err := h.q().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='branches'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check branches table: %w", err)
	}
	return n > 0, nil
}

// GetBranchHead returns the tag with the largest revision on the named
// branch. Fails if the branch carries no tags.
func (h *History) GetBranchHead(ctx context.Context, branch string) (types.Tag, error) {
	cols, err := h.tagColumns(ctx)
	if err != nil {
		return types.Tag{}, err
	}
	var row *sql.Row
	if cols.hasBranch {
		row = h.q().QueryRowContext(ctx,
			`SELECT `+tagSelectList(cols)+` FROM tags WHERE branch=? ORDER BY revision DESC LIMIT 1`, branch)
	} else if branch == types.TrunkBranch {
		row = h.q().QueryRowContext(ctx,
			`SELECT `+tagSelectList(cols)+` FROM tags ORDER BY revision DESC LIMIT 1`)
	} else {
		return types.Tag{}, errNotFound(fmt.Sprintf("branch %q head", branch))
	}
	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return types.Tag{}, errNotFound(fmt.Sprintf("branch %q head", branch))
	}
	if err != nil {
		return types.Tag{}, fmt.Errorf("get branch %q head: %w", branch, err)
	}
	return t, nil
}

// PruneBranches removes every branch that carries no tags and has no
// descendant branch that (transitively) carries a tag. Surviving branches
// whose direct parent is pruned are re-parented onto their nearest
// surviving ancestor, preserving I3. Must be called inside an open
// transaction.
func (h *History) PruneBranches(ctx context.Context) (bool, error) {
	if !h.writable {
		return false, errReadOnly()
	}

	branches, err := h.ListBranches(ctx)
	if err != nil {
		return false, err
	}
	parentOf := make(map[string]string, len(branches))
	for _, b := range branches {
		parentOf[b.Name] = b.Parent
	}

	hasOwnTag := make(map[string]bool, len(branches))
	rows, err := h.q().QueryContext(ctx, `SELECT DISTINCT branch FROM tags`)
	if err != nil {
		return false, fmt.Errorf("prune branches: %w", err)
	}
	for rows.Next() {
		var branch string
		if err := rows.Scan(&branch); err != nil {
			rows.Close()
			return false, fmt.Errorf("prune branches: %w", err)
		}
		hasOwnTag[branch] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, fmt.Errorf("prune branches: %w", err)
	}
	rows.Close()

	// survives[name] is true if name's subtree contains a tag anywhere.
	survives := make(map[string]bool, len(branches))
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
			for _, b := range branches {
				if b.Parent == name && survivesSubtree(b.Name) {
					result = true
					break
				}
			}
		}
		survives[name] = result
		return result
	}
	for _, b := range branches {
		survivesSubtree(b.Name)
	}

	// nearestSurvivingAncestor walks parent links past pruned branches.
	nearestSurvivingAncestor := func(name string) string {
		p := parentOf[name]
		for p != types.TrunkBranch && !survives[p] {
			p = parentOf[p]
		}
		return p
	}

	for _, b := range branches {
		if b.IsTrunk() {
			continue
		}
		if !survives[b.Name] {
			if _, err := h.q().ExecContext(ctx, `DELETE FROM branches WHERE name=?`, b.Name); err != nil {
				return false, fmt.Errorf("prune branch %q: %w", b.Name, err)
			}
			continue
		}
		if !survives[b.Parent] {
			newParent := nearestSurvivingAncestor(b.Name)
			if _, err := h.q().ExecContext(ctx,
				`UPDATE branches SET parent=? WHERE name=?`, newParent, b.Name); err != nil {
				return false, fmt.Errorf("re-parent branch %q: %w", b.Name, err)
			}
		}
	}
	return true, nil
}
