package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/lexandro/docindex-mcp/extract"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    path        TEXT PRIMARY KEY,
    file_name   TEXT NOT NULL,
    folder_path TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL DEFAULT '',
    format      TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    indexed_at  INTEGER NOT NULL,
    modified_at INTEGER NOT NULL,
    size        INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_file_name ON documents(file_name);
`

const documentColumns = `path, file_name, folder_path, content, format, status, reason, indexed_at, modified_at, size`

// SQLiteStore persists documents in a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Upsert inserts or replaces a document in one statement.
func (ss *SQLiteStore) Upsert(ctx context.Context, doc *Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	_, err := ss.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    file_name   = excluded.file_name,
    folder_path = excluded.folder_path,
    content     = excluded.content,
    format      = excluded.format,
    status      = excluded.status,
    reason      = excluded.reason,
    indexed_at  = excluded.indexed_at,
    modified_at = excluded.modified_at,
    size        = excluded.size`,
		doc.Path, doc.FileName, doc.FolderPath, doc.Content, string(doc.Format), string(doc.Status),
		doc.Reason, toNanos(doc.IndexedAt), toNanos(doc.ModifiedAt), doc.Size,
	)
	if err != nil {
		return ss.wrap(ctx, "upsert "+doc.Path, err)
	}
	return nil
}

// FindByPath returns the record for path.
func (ss *SQLiteStore) FindByPath(ctx context.Context, path string) (*Document, bool, error) {
	row := ss.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ss.wrap(ctx, "find "+path, err)
	}
	return doc, true, nil
}

// QueryContent uses LIKE for ASCII terms, which SQLite already compares
// case-insensitively. Terms with other characters are matched in Go.
func (ss *SQLiteStore) QueryContent(ctx context.Context, term string, limit int) ([]*Document, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if isASCII(term) {
		query := `SELECT ` + documentColumns + ` FROM documents WHERE content LIKE ? ESCAPE '\' ORDER BY path`
		args := []any{"%" + escapeLike(term) + "%"}
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err = ss.db.QueryContext(ctx, query, args...)
	} else {
		rows, err = ss.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE content != '' ORDER BY path`)
	}
	if err != nil {
		return nil, ss.wrap(ctx, "query content", err)
	}
	defer rows.Close()

	var results []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, ss.wrap(ctx, "query content", err)
		}
		if !ContainsFold(doc.Content, term) {
			continue
		}
		results = append(results, doc)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ss.wrap(ctx, "query content", err)
	}
	return results, nil
}

// Remove deletes the record for path.
func (ss *SQLiteStore) Remove(ctx context.Context, path string) error {
	if _, err := ss.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return ss.wrap(ctx, "remove "+path, err)
	}
	return nil
}

// Paths returns every stored path in ascending order.
func (ss *SQLiteStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := ss.db.QueryContext(ctx, `SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, ss.wrap(ctx, "paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, ss.wrap(ctx, "paths", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, ss.wrap(ctx, "paths", err)
	}
	return paths, nil
}

// Count returns the number of stored records.
func (ss *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, ss.wrap(ctx, "count", err)
	}
	return count, nil
}

// Close closes the database. Later calls fail with ErrUnavailable.
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

// wrap passes context errors through unchanged and marks everything else unavailable.
func (ss *SQLiteStore) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return unavailable(op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var format, status string
	var indexedAt, modifiedAt int64
	err := row.Scan(&doc.Path, &doc.FileName, &doc.FolderPath, &doc.Content, &format, &status,
		&doc.Reason, &indexedAt, &modifiedAt, &doc.Size)
	if err != nil {
		return nil, err
	}
	doc.Format = extract.Format(format)
	doc.Status = Status(status)
	doc.IndexedAt = fromNanos(indexedAt)
	doc.ModifiedAt = fromNanos(modifiedAt)
	return &doc, nil
}

// Timestamps are stored as Unix nanoseconds; 0 stands for the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

var _ Store = (*SQLiteStore)(nil)
