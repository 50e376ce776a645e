package sqlite

// schemaRevision is the on-disk schema revision this package writes and
// reads without translation. Older revisions are migrated forward on
// writable open; see migrations.go.
const schemaRevision = 3

// schema is the full current-revision (v1r3) DDL, applied verbatim when
// creating a fresh database. Migrations from older revisions build this
// same shape incrementally instead of re-running this string.
const schema = `
CREATE TABLE IF NOT EXISTS properties (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branches (
	name             TEXT PRIMARY KEY,
	parent           TEXT NOT NULL,
	initial_revision INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	name        TEXT PRIMARY KEY,
	root_hash   TEXT NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	revision    INTEGER NOT NULL,
	timestamp   INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	branch      TEXT NOT NULL DEFAULT '' REFERENCES branches(name)
);

CREATE INDEX IF NOT EXISTS idx_tags_revision ON tags(revision);
CREATE INDEX IF NOT EXISTS idx_tags_branch ON tags(branch);
CREATE INDEX IF NOT EXISTS idx_tags_timestamp ON tags(timestamp);

INSERT OR IGNORE INTO branches (name, parent, initial_revision) VALUES ('', '', 0);
INSERT OR IGNORE INTO properties (key, value) VALUES ('schema_revision', '3');
`

const propertyFQRN = "fqrn"
const propertySchemaRevision = "schema_revision"
