package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/objectfs/historydb/internal/types"
)

// ListTagsAffectedByRollback returns the target tag plus every tag on
// targetName's branch with a revision strictly greater than the target's,
// ordered by descending revision. Other tags sharing the target's revision
// are not affected.
func (h *History) ListTagsAffectedByRollback(ctx context.Context, targetName string) ([]types.Tag, error) {
	target, err := h.GetByName(ctx, targetName)
	if err != nil {
		return nil, err
	}
	cols, err := h.tagColumns(ctx)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if cols.hasBranch {
		rows, err = h.q().QueryContext(ctx,
			`SELECT `+tagSelectList(cols)+` FROM tags WHERE branch=? AND (revision>? OR name=?) ORDER BY revision DESC`,
			target.Branch, target.Revision, target.Name)
	} else {
		rows, err = h.q().QueryContext(ctx,
			`SELECT `+tagSelectList(cols)+` FROM tags WHERE revision>? OR name=? ORDER BY revision DESC`,
			target.Revision, target.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("list tags affected by rollback to %q: %w", targetName, err)
	}
	defer rows.Close()

	var out []types.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("list tags affected by rollback to %q: %w", targetName, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags affected by rollback to %q: %w", targetName, err)
	}
	return out, nil
}

// Rollback resolves the tag named newTag.Name, discards it along with every
// other tag on the same branch with a later revision, and installs
// newTag with an updated revision and root hash in its place. newTag.Revision
// must strictly exceed the current revision of the resolved tag; this is
// what rejects a "malicious rollback" where the caller tries to replay an
// old tag under a different name — the lookup is always keyed by
// newTag.Name, so a renamed copy simply fails to resolve.
func (h *History) Rollback(ctx context.Context, newTag types.Tag) (bool, error) {
	if !h.writable {
		return false, errReadOnly()
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
		if _, err := h.q().ExecContext(ctx, `DELETE FROM tags WHERE name=?`, t.Name); err != nil {
			return false, fmt.Errorf("rollback of %q: remove superseded tag %q: %w", newTag.Name, t.Name, err)
		}
	}

	newTag.Branch = existing.Branch
	if _, err := h.q().ExecContext(ctx,
		`INSERT INTO tags (name, root_hash, size, revision, timestamp, description, branch) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		newTag.Name, newTag.RootHash.String(), newTag.Size, newTag.Revision, newTag.Timestamp, newTag.Description, newTag.Branch); err != nil {
		return false, fmt.Errorf("rollback of %q: install new head: %w", newTag.Name, err)
	}
	return true, nil
}
