package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alucardeht/coffeeidx/internal/logger"
)

var log = logger.ForComponent("index")

var (
	ErrUnknownKey = errors.New("unknown index key")
	ErrEmptyFile  = errors.New("empty file handle")
)

// Store persists index entries for one project in sqlite. Each file owns a set
// of (key, value) entries that are replaced as a whole.
type Store struct {
	db       *sql.DB
	path     string
	resolver FileResolver
	locks    keyedMutex

	indexID string
	rebuilt bool
}

type Option func(*Store)

// WithResolver filters query results down to files the resolver still knows.
func WithResolver(r FileResolver) Option {
	return func(s *Store) {
		s.resolver = r
	}
}

// Open opens or creates the index database at dbPath for the project at root.
func Open(dbPath, root string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// One connection keeps pragmas and in-memory databases stable, and sqlite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(root); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) initSchema(root string) error {
	version, err := s.storedVersion()
	if err != nil {
		return err
	}

	if version != 0 && version != SchemaVersion {
		log.Warn("index schema changed, rebuilding", "path", s.path, "found", version, "want", SchemaVersion)
		for _, stmt := range dropSQL {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("drop old schema: %w", err)
			}
		}
		s.rebuilt = true
		version = 0
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if version == 0 {
		s.indexID = uuid.New().String()
		meta := map[string]string{
			metaSchemaVersion: strconv.Itoa(SchemaVersion),
			metaRoot:          root,
			metaIndexID:       s.indexID,
		}
		for name, value := range meta {
			if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta (name, value) VALUES (?, ?)`, name, value); err != nil {
				return fmt.Errorf("write meta %s: %w", name, err)
			}
		}
		return nil
	}

	if err := s.db.QueryRow(`SELECT value FROM meta WHERE name = ?`, metaIndexID).Scan(&s.indexID); err != nil {
		return fmt.Errorf("read index id: %w", err)
	}
	return nil
}

// storedVersion returns 0 for an empty database. A database with tables but no
// meta version is reported as version -1 so it gets rebuilt.
func (s *Store) storedVersion() (int, error) {
	var tables int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&tables); err != nil {
		return 0, fmt.Errorf("inspect index: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var raw string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE name = ?`, metaSchemaVersion).Scan(&raw)
	if err != nil {
		return -1, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return -1, nil
	}
	return v, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Rebuilt reports whether Open discarded an index written with another schema.
func (s *Store) Rebuilt() bool {
	return s.rebuilt
}

// IndexID identifies this generation of the index; it changes on rebuild.
func (s *Store) IndexID() string {
	return s.indexID
}

func (s *Store) Path() string {
	return s.path
}

// Replace atomically swaps all entries of file for entries. When hash equals
// the stored content hash of an indexed file nothing is written and Replace
// reports false.
func (s *Store) Replace(ctx context.Context, file, hash string, entries []Entry) (bool, error) {
	if file == "" {
		return false, ErrEmptyFile
	}
	for _, e := range entries {
		if !e.Key.Valid() {
			return false, fmt.Errorf("%w: %q", ErrUnknownKey, e.Key)
		}
	}

	unlock := s.locks.Lock(file)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var (
		fileID  int64
		current sql.NullString
		status  string
	)
	err = tx.QueryRowContext(ctx, `SELECT id, content_hash, status FROM files WHERE path = ?`, file).
		Scan(&fileID, &current, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO files (path, content_hash, status, indexed_at) VALUES (?, ?, ?, ?)
		`, file, hash, StatusIndexed, now)
		if err != nil {
			return false, fmt.Errorf("insert file: %w", err)
		}
		if fileID, err = res.LastInsertId(); err != nil {
			return false, fmt.Errorf("get file id: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("get file: %w", err)
	default:
		if hash != "" && current.Valid && current.String == hash && FileStatus(status) == StatusIndexed {
			return false, nil
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE files SET content_hash = ?, status = ?, error_message = NULL, indexed_at = ? WHERE id = ?
		`, hash, StatusIndexed, now, fileID)
		if err != nil {
			return false, fmt.Errorf("update file: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE file_id = ?`, fileID); err != nil {
		return false, fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (file_id, key, value, seq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, fileID, string(e.Key), e.Value, i); err != nil {
			return false, fmt.Errorf("insert entry %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Remove deletes a file and all of its entries.
func (s *Store) Remove(ctx context.Context, file string) error {
	unlock := s.locks.Lock(file)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE file_id IN (SELECT id FROM files WHERE path = ?)`, file); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, file); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}

// SetStatus records a failed or skipped file without touching its entries.
func (s *Store) SetStatus(ctx context.Context, file string, status FileStatus, message string) error {
	unlock := s.locks.Lock(file)
	defer unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, status, error_message, indexed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message
	`, file, status, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return nil
}

// FileHash returns the stored content hash of file.
func (s *Store) FileHash(ctx context.Context, file string) (string, bool) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM files WHERE path = ?`, file).Scan(&hash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn("file hash lookup failed", "file", file, "error", err)
		}
		return "", false
	}
	return hash.String, hash.Valid
}

// Query returns the entries under key whose value starts with prefix. An empty
// prefix returns every entry of the key. Errors are logged and yield no results.
func (s *Store) Query(ctx context.Context, key Key, prefix string) []Result {
	q := `SELECT f.path, e.value FROM entries e JOIN files f ON f.id = e.file_id WHERE e.key = ?`
	args := []any{string(key)}
	if prefix != "" {
		q += ` AND e.value >= ?`
		args = append(args, prefix)
		if upper, ok := prefixUpperBound(prefix); ok {
			q += ` AND e.value < ?`
			args = append(args, upper)
		}
	}
	q += ` ORDER BY f.path, e.seq`

	return s.collect(ctx, q, args, key)
}

// InFile returns the entries of one file under any of keys, in source order.
func (s *Store) InFile(ctx context.Context, file string, keys ...Key) []Result {
	if len(keys) == 0 {
		keys = AllKeys
	}
	q := `SELECT f.path, e.value, e.key FROM entries e JOIN files f ON f.id = e.file_id
		WHERE f.path = ? AND e.key IN (` + placeholders(len(keys)) + `) ORDER BY e.seq`
	args := []any{file}
	for _, k := range keys {
		args = append(args, string(k))
	}
	return s.collect(ctx, q, args, "")
}

// collect runs a query returning (path, value) rows, plus the key when fixed is
// empty, and drops rows of files the resolver no longer knows.
func (s *Store) collect(ctx context.Context, q string, args []any, fixed Key) []Result {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		log.Warn("index query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var (
		out   []Result
		alive = make(map[string]bool)
	)
	for rows.Next() {
		r := Result{Key: fixed}
		dest := []any{&r.File, &r.Value}
		if fixed == "" {
			dest = append(dest, &r.Key)
		}
		if err := rows.Scan(dest...); err != nil {
			log.Warn("index scan failed", "error", err)
			return nil
		}

		ok, seen := alive[r.File]
		if !seen {
			ok = s.resolver == nil || s.resolver.Resolves(r.File)
			alive[r.File] = ok
		}
		if ok {
			out = append(out, r)
		}
	}
	if err := rows.Err(); err != nil {
		log.Warn("index query failed", "error", err)
		return nil
	}
	return out
}

// prefixUpperBound returns the smallest string greater than every string with
// the given prefix, or false when no such bound exists.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

// Files lists every known file with its status and entry count.
func (s *Store) Files(ctx context.Context) ([]IndexedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.path, f.content_hash, f.status, f.error_message, f.indexed_at, COUNT(e.file_id)
		FROM files f LEFT JOIN entries e ON e.file_id = f.id
		GROUP BY f.id ORDER BY f.path
	`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []IndexedFile
	for rows.Next() {
		var (
			f         IndexedFile
			hash, msg sql.NullString
			indexedAt sql.NullTime
		)
		if err := rows.Scan(&f.ID, &f.Path, &hash, &f.Status, &msg, &indexedAt, &f.Entries); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.ContentHash = hash.String
		f.ErrorMessage = msg.String
		if indexedAt.Valid {
			f.IndexedAt = indexedAt.Time
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		IndexID:       s.indexID,
		SchemaVersion: SchemaVersion,
		EntriesByKey:  make(map[Key]int, len(AllKeys)),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'indexed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0)
		FROM files
	`).Scan(&stats.TotalFiles, &stats.IndexedFiles, &stats.FailedFiles, &stats.SkippedFiles)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IndexedAt.After(stats.LastIndexedAt) {
			stats.LastIndexedAt = f.IndexedAt
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, COUNT(*) FROM entries GROUP BY key`)
	if err != nil {
		return nil, fmt.Errorf("get entry counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan entry count: %w", err)
		}
		stats.EntriesByKey[Key(key)] = count
		stats.TotalEntries += count
	}
	return stats, rows.Err()
}
