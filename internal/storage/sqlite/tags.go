package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/objectfs/historydb/internal/hash"
	"github.com/objectfs/historydb/internal/types"
)

// Insert adds a new tag. It fails with (false, nil) if a tag with the same
// name already exists (I4), and with an error wrapping
// types.ErrConstraintViolation if the named branch does not exist (I2).
func (h *History) Insert(ctx context.Context, tag types.Tag) (bool, error) {
	if !h.writable {
		return false, errReadOnly()
	}
	if err := validateTagName(tag.Name); err != nil {
		return false, err
	}

	exists, err := h.ExistsBranch(ctx, tag.Branch)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("tag %q references unknown branch %q: %w", tag.Name, tag.Branch, types.ErrConstraintViolation)
	}

	_, err = h.q().ExecContext(ctx,
		`INSERT INTO tags (name, root_hash, size, revision, timestamp, description, branch) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tag.Name, tag.RootHash.String(), tag.Size, tag.Revision, tag.Timestamp, tag.Description, tag.Branch)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert tag %q: %w", tag.Name, err)
	}
	return true, nil
}

// Remove deletes the tag with the given name. Removing an absent name is a
// successful no-op, not an error.
func (h *History) Remove(ctx context.Context, name string) (bool, error) {
	if !h.writable {
		return false, errReadOnly()
	}
	if _, err := h.q().ExecContext(ctx, `DELETE FROM tags WHERE name=?`, name); err != nil {
		return false, fmt.Errorf("remove tag %q: %w", name, err)
	}
	return true, nil
}

// Exists reports whether a tag with the given name is present.
func (h *History) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := h.q().QueryRowContext(ctx, `SELECT count(*) FROM tags WHERE name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check tag %q: %w", name, err)
	}
	return n > 0, nil
}

func scanTag(row interface{ Scan(dest ...any) error }) (types.Tag, error) {
	var t types.Tag
	var rootHash string
	if err := row.Scan(&t.Name, &rootHash, &t.Size, &t.Revision, &t.Timestamp, &t.Description, &t.Branch); err != nil {
		return types.Tag{}, err
	}
	h, err := hash.Parse(rootHash)
	if err != nil {
		return types.Tag{}, fmt.Errorf("parse root hash of tag %q: %w", t.Name, err)
	}
	t.RootHash = h
	return t, nil
}

// GetByName retrieves the full tag record for name.
func (h *History) GetByName(ctx context.Context, name string) (types.Tag, error) {
	cols, err := h.tagColumns(ctx)
	if err != nil {
		return types.Tag{}, err
	}
	row := h.q().QueryRowContext(ctx, `SELECT `+tagSelectList(cols)+` FROM tags WHERE name=?`, name)
	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return types.Tag{}, errNotFound(fmt.Sprintf("tag %q", name))
	}
	if err != nil {
		return types.Tag{}, fmt.Errorf("get tag %q: %w", name, err)
	}
	return t, nil
}

// GetByDate returns the trunk tag with the largest timestamp not exceeding
// ts. Only trunk tags (branch = "") participate; on legacy schemas that
// predate the branch column every tag is implicitly on the trunk.
func (h *History) GetByDate(ctx context.Context, ts int64) (types.Tag, error) {
	cols, err := h.tagColumns(ctx)
	if err != nil {
		return types.Tag{}, err
	}
	where := "timestamp<=?"
	if cols.hasBranch {
		where = "branch='' AND " + where
	}
	row := h.q().QueryRowContext(ctx,
		`SELECT `+tagSelectList(cols)+` FROM tags WHERE `+where+` ORDER BY timestamp DESC LIMIT 1`, ts)
	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return types.Tag{}, errNotFound("tag by date")
	}
	if err != nil {
		return types.Tag{}, fmt.Errorf("get tag by date: %w", err)
	}
	return t, nil
}

// List returns every tag ordered by descending revision (ties broken by
// descending rowid, i.e. most-recently-inserted first).
func (h *History) List(ctx context.Context) ([]types.Tag, error) {
	cols, err := h.tagColumns(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := h.q().QueryContext(ctx,
		`SELECT `+tagSelectList(cols)+` FROM tags ORDER BY revision DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []types.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// GetNumberOfTags returns the total tag count.
func (h *History) GetNumberOfTags(ctx context.Context) (int, error) {
	var n int
	err := h.q().QueryRowContext(ctx, `SELECT count(*) FROM tags`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}

// GetHashes returns the deduplicated root_hash values across all tags,
// ordered by descending revision of each hash's highest-revision
// occurrence.
func (h *History) GetHashes(ctx context.Context) ([]string, error) {
	rows, err := h.q().QueryContext(ctx, `
		SELECT root_hash, max(revision) AS top_revision
		FROM tags
		GROUP BY root_hash
		ORDER BY top_revision DESC`)
	if err != nil {
		return nil, fmt.Errorf("get hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var rootHash string
		var topRevision uint64
		if err := rows.Scan(&rootHash, &topRevision); err != nil {
			return nil, fmt.Errorf("get hashes: %w", err)
		}
		out = append(out, rootHash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get hashes: %w", err)
	}
	return out, nil
}
