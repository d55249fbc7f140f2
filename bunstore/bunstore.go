// Package bunstore persists posts through the bun ORM on SQLite or Postgres.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/hypergopher/blogdesk"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// OpenDB connects to the database named by dsn and wraps it for bun.
// SQLite goes through mattn/go-sqlite3; Postgres goes through a pgx pool.
func OpenDB(ctx context.Context, dialect, dsn string) (*bun.DB, error) {
	switch dialect {
	case DialectSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case DialectPostgres:
		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqldb := stdlib.OpenDBFromPool(pool)
		return bun.NewDB(sqldb, pgdialect.New()), nil

	default:
		return nil, fmt.Errorf("unsupported dialect: %q", dialect)
	}
}

// BunStore is a PostStore backed by a bun.DB.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

var (
	_ blogdesk.PostStore    = (*BunStore)(nil)
	_ blogdesk.PostSearcher = (*BunStore)(nil)
)

// New wraps db. Call Init before use.
func New(db *bun.DB) *BunStore {
	return &BunStore{
		db: db,
		// Both dialects keep microseconds.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// DB exposes the underlying handle, mainly for health checks.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

type postModel struct {
	bun.BaseModel `bun:"table:posts"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Slug      string    `bun:"slug,notnull,unique"`
	Title     string    `bun:"title,notnull"`
	Markdown  string    `bun:"markdown,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func modelFromPost(post *blogdesk.Post) postModel {
	return postModel{
		Slug:      post.Slug,
		Title:     post.Title,
		Markdown:  post.Markdown,
		CreatedAt: post.Created,
		UpdatedAt: post.Updated,
	}
}

func modelToPost(model *postModel) *blogdesk.Post {
	return &blogdesk.Post{
		Slug:     model.Slug,
		Title:    model.Title,
		Markdown: model.Markdown,
		Created:  model.CreatedAt.UTC(),
		Updated:  model.UpdatedAt.UTC(),
	}
}

// Init creates the posts table and its index if they do not exist.
func (s *BunStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*postModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create table: %w", blogdesk.ErrStoreUnavailable, err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*postModel)(nil)).
		Index("posts_created_idx").
		Column("created_at", "slug").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: create index: %w", blogdesk.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *BunStore) List(ctx context.Context) ([]*blogdesk.Post, error) {
	var models []postModel
	if err := s.db.NewSelect().Model(&models).Order("created_at ASC", "slug ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", blogdesk.ErrStoreUnavailable, err)
	}
	return toPosts(models), nil
}

// likeEscaper makes LIKE wildcards in a query match literally, with '!' as the escape character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches the query case-insensitively against titles and markdown.
func (s *BunStore) Search(ctx context.Context, query string) ([]*blogdesk.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	var models []postModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(markdown) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("created_at ASC", "slug ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	return toPosts(models), nil
}

func (s *BunStore) Get(ctx context.Context, slug string) (*blogdesk.Post, error) {
	var model postModel
	if err := s.db.NewSelect().Model(&model).Where("slug = ?", slug).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, slug)
		}
		return nil, err
	}
	return modelToPost(&model), nil
}

func (s *BunStore) Create(ctx context.Context, post *blogdesk.Post) (*blogdesk.Post, error) {
	model := modelFromPost(post)
	model.CreatedAt = s.now()
	model.UpdatedAt = model.CreatedAt

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*postModel)(nil)).Where("slug = ?", post.Slug).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", blogdesk.ErrPostExists, post.Slug)
		}

		_, err = tx.NewInsert().Model(&model).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return modelToPost(&model), nil
}

func (s *BunStore) Update(ctx context.Context, oldSlug string, post *blogdesk.Post) (*blogdesk.Post, error) {
	var model postModel

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&model).Where("slug = ?", oldSlug).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, oldSlug)
			}
			return err
		}

		if post.Slug != oldSlug {
			exists, err := tx.NewSelect().Model((*postModel)(nil)).Where("slug = ?", post.Slug).Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", blogdesk.ErrPostExists, post.Slug)
			}
		}

		model.Slug = post.Slug
		model.Title = post.Title
		model.Markdown = post.Markdown
		model.UpdatedAt = s.now()

		_, err := tx.NewUpdate().
			Model(&model).
			Column("slug", "title", "markdown", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return modelToPost(&model), nil
}

func (s *BunStore) Delete(ctx context.Context, slug string) error {
	res, err := s.db.NewDelete().Model((*postModel)(nil)).Where("slug = ?", slug).Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, slug)
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func toPosts(models []postModel) []*blogdesk.Post {
	posts := make([]*blogdesk.Post, 0, len(models))
	for i := range models {
		posts = append(posts, modelToPost(&models[i]))
	}
	// SQLite keeps timestamps as text, so re-sort on the parsed values.
	blogdesk.SortPosts(posts)
	return posts
}
