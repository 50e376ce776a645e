package sqlite

import (
	"context"
	"fmt"
)

// ListRecycleBin returns the recycle bin's contents and whether the concept
// is available at all for this database's current on-disk state.
//
//   - v1r0/v1r1 (no recycle_bin table yet): (nil, false, err) — err wraps
//     types.ErrNotAvailableAtSchema, since the concept does not exist yet
//     on disk.
//   - v1r2 read without migration (recycle_bin table present): the actual
//     stored contents, read straight through with no migration performed.
//   - current schema (fresh or migrated): (nil, true, nil) — the bin is
//     retired; migration always empties it and nothing repopulates it.
func (h *History) ListRecycleBin(ctx context.Context) ([]string, bool, error) {
	var hasTable int
	err := h.q().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='recycle_bin'`).Scan(&hasTable)
	if err != nil {
		return nil, false, fmt.Errorf("check recycle bin: %w", err)
	}
	if hasTable == 0 {
		rev, err := h.revision(ctx)
		if err != nil {
			return nil, false, err
		}
		if rev < 2 {
			return nil, false, errNotAvailableAtSchema()
		}
		return nil, true, nil
	}

	rows, err := h.q().QueryContext(ctx, `SELECT hash FROM recycle_bin`)
	if err != nil {
		return nil, false, fmt.Errorf("list recycle bin: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, false, fmt.Errorf("list recycle bin: %w", err)
		}
		out = append(out, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("list recycle bin: %w", err)
	}
	return out, true, nil
}

// EmptyRecycleBin discards any recycle bin contents. It is a no-op on the
// current schema, where the bin is always already empty, and on legacy
// schemas that predate the recycle_bin table.
func (h *History) EmptyRecycleBin(ctx context.Context) error {
	if !h.writable {
		return errReadOnly()
	}
	var hasTable int
	if err := h.q().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='recycle_bin'`).Scan(&hasTable); err != nil {
		return fmt.Errorf("empty recycle bin: %w", err)
	}
	if hasTable == 0 {
		return nil
	}
	if _, err := h.q().ExecContext(ctx, `DELETE FROM recycle_bin`); err != nil {
		return fmt.Errorf("empty recycle bin: %w", err)
	}
	return nil
}
