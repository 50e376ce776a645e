package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward step in the schema migration chain. Func runs
// inside the single transaction opened by runMigrations and must
// leave the database at the revision named by its position in migrationsList.
type Migration struct {
	Name string
	Func func(ctx context.Context, tx *sql.Tx) error
}

var migrationsList = []Migration{
	{Name: "v1r0_to_v1r1_add_size", Func: migrateV1R0ToV1R1},
	{Name: "v1r1_to_v1r2_add_recycle_bin", Func: migrateV1R1ToV1R2},
	{Name: "v1r2_to_v1r3_add_branches_drop_recycle_bin", Func: migrateV1R2ToV1R3},
}

// ListMigrations returns the names of every migration step known to this
// package, in application order.
func ListMigrations() []string {
	names := make([]string, len(migrationsList))
	for i, m := range migrationsList {
		names[i] = m.Name
	}
	return names
}

// detectRevision inspects an already-open database and reports its current
// schema revision. A database with no properties table at all predates the
// introduction of schema versioning and is treated as v1r0.
func detectRevision(ctx context.Context, db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name='properties'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("detect schema revision: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var rev int
	err = db.QueryRowContext(ctx, `SELECT value FROM properties WHERE key=?`, propertySchemaRevision).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("detect schema revision: %w", err)
	}
	return rev, nil
}

// runMigrations brings db forward from its current on-disk revision to
// schemaRevision, inside a single transaction. It is a no-op if
// the database is already current.
func runMigrations(ctx context.Context, db *sql.DB) error {
	current, err := detectRevision(ctx, db)
	if err != nil {
		return err
	}
	if current >= schemaRevision {
		return nil
	}

	// PRAGMA foreign_keys is per-connection, so it and the migration
	// transaction must share one pinned connection rather than going
	// through the pool, where db.ExecContext and db.BeginTx could each
	// land on a different physical connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("disable foreign keys before migration: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for i := current; i < schemaRevision; i++ {
		m := migrationsList[i]
		if err := m.Func(ctx, tx); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO properties (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		propertySchemaRevision, fmt.Sprintf("%d", schemaRevision)); err != nil {
		return fmt.Errorf("stamp schema revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	committed = true

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("re-enable foreign keys after migration: %w", err)
	}
	return nil
}

// migrateV1R0ToV1R1 adds the size column, defaulting existing rows to 0.
func migrateV1R0ToV1R1(ctx context.Context, tx *sql.Tx) error {
	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('tags') WHERE name='size'`).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `ALTER TABLE tags ADD COLUMN size INTEGER NOT NULL DEFAULT 0`)
	return err
}

// migrateV1R1ToV1R2 adds the (now-retired) recycle_bin table.
func migrateV1R1ToV1R2(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS recycle_bin (hash TEXT NOT NULL)`)
	return err
}

// migrateV1R2ToV1R3 adds the branches table and the tags.branch column,
// seeds the trunk branch, rewrites every existing tag onto it, and drops
// the retired recycle_bin table. The recycle bin's prior contents are
// discarded: nothing has repopulated it since v1r2 and nothing in the
// current schema writes to it.
func migrateV1R2ToV1R3(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS branches (
			name             TEXT PRIMARY KEY,
			parent           TEXT NOT NULL,
			initial_revision INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create branches table: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO branches (name, parent, initial_revision) VALUES ('', '', 0)`); err != nil {
		return fmt.Errorf("seed trunk branch: %w", err)
	}

	var hasBranch int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('tags') WHERE name='branch'`).Scan(&hasBranch); err != nil {
		return err
	}
	if hasBranch == 0 {
		if _, err := tx.ExecContext(ctx,
			`ALTER TABLE tags ADD COLUMN branch TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add tags.branch column: %w", err)
		}
	}

	var hasRecycleBin int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='recycle_bin'`).Scan(&hasRecycleBin); err != nil {
		return err
	}
	if hasRecycleBin == 1 {
		if _, err := tx.ExecContext(ctx, `DROP TABLE recycle_bin`); err != nil {
			return fmt.Errorf("drop recycle_bin: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tags_revision ON tags(revision)`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tags_branch ON tags(branch)`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tags_timestamp ON tags(timestamp)`); err != nil {
		return err
	}
	return nil
}
