package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hypergopher/blogdesk"
)

// Note: the busy_timeout pragma must be first because
// the connection needs to be set to block on busy before WAL mode
// is set in case it hasn't been already set by another connection.
const pragmas = "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=journal_size_limit(200000000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=temp_store(MEMORY)&_pragma=cache_size(-16000)"

// timeFormat is fixed width so stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// OpenDB opens a SQLite database file with the pragmas the store expects.
func OpenDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single connection serialises writers so read-then-write transactions never hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return db, nil
}

type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	tableName string
	now       func() time.Time
}

var (
	_ blogdesk.PostStore    = (*SQLiteStore)(nil)
	_ blogdesk.PostSearcher = (*SQLiteStore)(nil)
)

func NewSQLiteStore(db *sql.DB, dbPath, tableName string) *SQLiteStore {
	if tableName == "" {
		tableName = "posts"
	}
	return &SQLiteStore{
		db:        db,
		dbPath:    dbPath,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DBPath returns the path of the database file.
func (s *SQLiteStore) DBPath() string {
	return s.dbPath
}

// Init initializes the SQLiteStore, creating the necessary tables or indexes if they do not exist.
func (s *SQLiteStore) Init(ctx context.Context) error {
	query := `
		-- Table for holding posts
		CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			markdown TEXT NOT NULL,
			created TEXT NOT NULL,
			updated TEXT NOT NULL
		);

		-- Index on created for listing
		CREATE INDEX IF NOT EXISTS ` + s.tableName + `_created_idx ON ` + s.tableName + `(created, slug);

		-- Create virtual table for full-text search
		CREATE VIRTUAL TABLE IF NOT EXISTS ` + s.tableName + `_search USING fts5(
			title,
			markdown
		);

		-- Triggers to keep the full-text search table current
		CREATE TRIGGER IF NOT EXISTS ` + s.tableName + `_search_ai AFTER INSERT ON ` + s.tableName + `
		BEGIN
			INSERT INTO ` + s.tableName + `_search(rowid, title, markdown)
			VALUES(new.id, new.title, new.markdown);
		END;

		CREATE TRIGGER IF NOT EXISTS ` + s.tableName + `_search_ad AFTER DELETE ON ` + s.tableName + `
		BEGIN
			DELETE FROM ` + s.tableName + `_search WHERE rowid = old.id;
		END;

		CREATE TRIGGER IF NOT EXISTS ` + s.tableName + `_search_au AFTER UPDATE ON ` + s.tableName + `
		BEGIN
			DELETE FROM ` + s.tableName + `_search WHERE rowid = old.id;
			INSERT INTO ` + s.tableName + `_search(rowid, title, markdown)
			VALUES(new.id, new.title, new.markdown);
		END;
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: %w", blogdesk.ErrStoreUnavailable, err)
	}
	return nil
}

// List returns every post ordered by creation time, then slug.
func (s *SQLiteStore) List(ctx context.Context) ([]*blogdesk.Post, error) {
	query := `SELECT slug, title, markdown, created, updated FROM ` + s.tableName + ` ORDER BY created, slug`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blogdesk.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Search runs a full-text query over titles and markdown. The query is matched as a phrase.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]*blogdesk.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}

	stmt := `
		SELECT p.slug, p.title, p.markdown, p.created, p.updated
		FROM ` + s.tableName + `_search
		JOIN ` + s.tableName + ` p ON p.id = ` + s.tableName + `_search.rowid
		WHERE ` + s.tableName + `_search MATCH ?
		ORDER BY p.created, p.slug
	`
	rows, err := s.db.QueryContext(ctx, stmt, phrase(query))
	if err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Get returns the post with the given slug.
func (s *SQLiteStore) Get(ctx context.Context, slug string) (*blogdesk.Post, error) {
	query := `SELECT slug, title, markdown, created, updated FROM ` + s.tableName + ` WHERE slug = ?`
	post, err := scanPost(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting post %s: %w", slug, err)
	}
	return post, nil
}

// Create creates a new post in the database
func (s *SQLiteStore) Create(ctx context.Context, post *blogdesk.Post) (*blogdesk.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	exists, err := s.exists(ctx, tx, post.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostExists, post.Slug)
	}

	created := post.Clone()
	created.Created = s.now()
	created.Updated = created.Created

	query := `INSERT INTO ` + s.tableName + ` (slug, title, markdown, created, updated) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		created.Slug, created.Title, created.Markdown,
		created.Created.Format(timeFormat), created.Updated.Format(timeFormat)); err != nil {
		return nil, fmt.Errorf("error inserting post %s: %w", post.Slug, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return created, nil
}

// Update replaces the post stored under oldSlug. The created time is kept.
func (s *SQLiteStore) Update(ctx context.Context, oldSlug string, post *blogdesk.Post) (*blogdesk.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	query := `SELECT slug, title, markdown, created, updated FROM ` + s.tableName + ` WHERE slug = ?`
	existing, err := scanPost(tx.QueryRowContext(ctx, query, oldSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, oldSlug)
	}
	if err != nil {
		return nil, err
	}

	if post.Slug != oldSlug {
		exists, err := s.exists(ctx, tx, post.Slug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostExists, post.Slug)
		}
	}

	updated := post.Clone()
	updated.Created = existing.Created
	updated.Updated = s.now()

	query = `UPDATE ` + s.tableName + ` SET slug = ?, title = ?, markdown = ?, updated = ? WHERE slug = ?`
	if _, err := tx.ExecContext(ctx, query,
		updated.Slug, updated.Title, updated.Markdown, updated.Updated.Format(timeFormat),
		oldSlug); err != nil {
		return nil, fmt.Errorf("error updating post %s: %w", oldSlug, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the post with the given slug.
func (s *SQLiteStore) Delete(ctx context.Context, slug string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	query := `DELETE FROM ` + s.tableName + ` WHERE slug = ?`
	res, err := tx.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("error deleting post %s: %w", slug, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, slug)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) exists(ctx context.Context, tx *sql.Tx, slug string) (bool, error) {
	var n int
	query := `SELECT COUNT(1) FROM ` + s.tableName + ` WHERE slug = ?`
	if err := tx.QueryRowContext(ctx, query, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*blogdesk.Post, error) {
	var (
		post             blogdesk.Post
		created, updated string
	)
	if err := row.Scan(&post.Slug, &post.Title, &post.Markdown, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if post.Created, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("invalid created time for %s: %w", post.Slug, err)
	}
	if post.Updated, err = time.Parse(timeFormat, updated); err != nil {
		return nil, fmt.Errorf("invalid updated time for %s: %w", post.Slug, err)
	}
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]*blogdesk.Post, error) {
	posts := make([]*blogdesk.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// phrase quotes a user query so FTS5 treats it as a single phrase.
func phrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
