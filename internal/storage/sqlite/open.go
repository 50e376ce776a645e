package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// History is the persistent, SQLite-backed implementation of
// storage.History. It owns one database handle, one optional file lock
// (held only when opened writable), and the frozen repository identity.
type History struct {
	db       *sql.DB
	lock     *flock.Flock
	writable bool
	fqrn     string
	tx       *sql.Tx
	cols     *tagCols
}

// tagCols records which optional columns exist on the open database's tags
// table, so legacy (pre-v1r1/pre-v1r3) schemas can be read without first
// migrating them.
type tagCols struct {
	hasSize   bool
	hasBranch bool
}

func (h *History) tagColumns(ctx context.Context) (tagCols, error) {
	if h.cols != nil {
		return *h.cols, nil
	}
	var c tagCols
	if err := h.q().QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('tags') WHERE name='size'`).Scan(&boolCounter{&c.hasSize}); err != nil {
		return tagCols{}, fmt.Errorf("inspect tags schema: %w", err)
	}
	if err := h.q().QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('tags') WHERE name='branch'`).Scan(&boolCounter{&c.hasBranch}); err != nil {
		return tagCols{}, fmt.Errorf("inspect tags schema: %w", err)
	}
	h.cols = &c
	return c, nil
}

// boolCounter adapts a `count(*)` scan target into a bool (non-zero = true)
// without an intermediate int variable at every call site.
type boolCounter struct {
	dest *bool
}

func (b *boolCounter) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case []byte:
		_, err := fmt.Sscanf(string(v), "%d", &n)
		if err != nil {
			return err
		}
	}
	*b.dest = n > 0
	return nil
}

// tagSelectList returns the SELECT column expression list appropriate for
// cols, substituting literal defaults for columns absent on legacy schemas.
func tagSelectList(cols tagCols) string {
	size := "size"
	if !cols.hasSize {
		size = "0 AS size"
	}
	branch := "branch"
	if !cols.hasBranch {
		branch = "'' AS branch"
	}
	return "name, root_hash, " + size + ", revision, timestamp, description, " + branch
}

// Create initializes a fresh history database at path with the given
// repository identity string. It fails if path already exists.
func Create(ctx context.Context, path, fqrn string) (*History, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("history: %s already exists", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("history: stat %s: %w", path, err)
	}

	h, err := openWritable(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("history: initialize schema: %w", err)
	}
	if _, err := h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO properties (key, value) VALUES (?, ?)`, propertyFQRN, fqrn); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("history: stamp repository identity: %w", err)
	}
	h.fqrn = fqrn
	return h, nil
}

// Open opens an existing history database read-only. Legacy on-disk
// schemas are read in place without migration.
func Open(ctx context.Context, path string) (*History, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	h := &History{db: db, writable: false}
	if err := h.loadFQRN(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

// OpenWritable opens an existing history database for read/write, taking an
// exclusive advisory lock on a sibling "<path>.lock" file and migrating it forward to
// the current schema revision if it is not already current.
func OpenWritable(ctx context.Context, path string) (*History, error) {
	h, err := openWritable(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, h.db); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("history: migrate %s: %w", path, err)
	}
	if err := h.loadFQRN(ctx); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func openWritable(ctx context.Context, path string) (*History, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("history: acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("history: %s is already open for writing", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	return &History{db: db, lock: lock, writable: true}, nil
}

func (h *History) loadFQRN(ctx context.Context) error {
	var fqrn string
	err := h.db.QueryRowContext(ctx, `SELECT value FROM properties WHERE key=?`, propertyFQRN).Scan(&fqrn)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: read repository identity: %w", err)
	}
	h.fqrn = fqrn
	return nil
}

// Close releases the database handle and, if held, the exclusive file lock.
func (h *History) Close() error {
	var errs []error
	if h.tx != nil {
		_ = h.tx.Rollback()
		h.tx = nil
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if h.lock != nil {
		if err := h.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("history: close: %v", errs)
	}
	return nil
}

// Writable reports whether this handle was opened for read/write.
func (h *History) Writable() bool { return h.writable }

// FQRN returns the repository identity string frozen at creation time.
func (h *History) FQRN() string { return h.fqrn }

// revision reports the schema revision this handle currently sees on disk.
func (h *History) revision(ctx context.Context) (int, error) {
	return detectRevision(ctx, h.db)
}

// querier abstracts over *sql.DB and *sql.Tx so every operation works
// identically whether or not a transaction is open.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (h *History) q() querier {
	if h.tx != nil {
		return h.tx
	}
	return h.db
}

// BeginTransaction opens a single transaction. Nested calls fail.
func (h *History) BeginTransaction(ctx context.Context) error {
	if !h.writable {
		return fmt.Errorf("history: begin transaction: %w", errReadOnly())
	}
	if h.tx != nil {
		return fmt.Errorf("history: a transaction is already open")
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin transaction: %w", err)
	}
	h.tx = tx
	return nil
}

// CommitTransaction commits the open transaction.
func (h *History) CommitTransaction(ctx context.Context) error {
	if h.tx == nil {
		return fmt.Errorf("history: commit transaction: no transaction is open")
	}
	err := h.tx.Commit()
	h.tx = nil
	if err != nil {
		return fmt.Errorf("history: commit transaction: %w", err)
	}
	return nil
}
