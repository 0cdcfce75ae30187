package index

// SchemaVersion is bumped whenever the tables or the value encoding change.
// A store opened on an older version drops everything and starts over.
const SchemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT UNIQUE NOT NULL,
    content_hash TEXT,
    status TEXT DEFAULT 'indexed',
    error_message TEXT,
    indexed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);

CREATE TABLE IF NOT EXISTS entries (
    file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_key_value ON entries(key, value);
CREATE INDEX IF NOT EXISTS idx_entries_file ON entries(file_id);
`

var dropSQL = []string{
	`DROP TABLE IF EXISTS entries`,
	`DROP TABLE IF EXISTS files`,
	`DROP TABLE IF EXISTS meta`,
}

const (
	metaSchemaVersion = "schema_version"
	metaRoot          = "root"
	metaIndexID       = "index_id"
)
