package sqlitestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/storetest"
	"github.com/hypergopher/blogdesk/sqlitestore"
)

func setupTestEnvironment(t *testing.T) *sqlitestore.SQLiteStore {
	tempDir, err := os.MkdirTemp("", "test_sqlitestore")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	// Create a new SQLiteStore db
	dbPath := filepath.Join(tempDir, "test.db")

	db, err := sqlitestore.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create SQLite db: %v", err)
	}

	store := sqlitestore.NewSQLiteStore(db, dbPath, "posts")
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}

	t.Cleanup(func() {
		teardownTestEnvironment(t, store)
	})

	return store
}

func teardownTestEnvironment(t *testing.T, store *sqlitestore.SQLiteStore) {
	// Close is idempotent for *sql.DB, the suite may already have closed it.
	_ = store.Close()

	// Remove the test database
	if err := os.RemoveAll(filepath.Dir(store.DBPath())); err != nil {
		t.Fatalf("Failed to remove test database: %v", err)
	}
}

func TestSQLiteStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) blogdesk.PostStore {
		return setupTestEnvironment(t)
	})
}

func TestSQLiteStore_InitIsRepeatable(t *testing.T) {
	store := setupTestEnvironment(t)

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.Init(context.Background()))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	store := setupTestEnvironment(t)
	ctx := context.Background()

	_, err := store.Create(ctx, storetest.NewPost("durable"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sqlitestore.OpenDB(store.DBPath())
	require.NoError(t, err)
	reopened := sqlitestore.NewSQLiteStore(db, store.DBPath(), "posts")
	defer reopened.Close()
	require.NoError(t, reopened.Init(ctx))

	got, err := reopened.Get(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, "Title of durable", got.Title)
}

func TestSQLiteStore_SearchQuoting(t *testing.T) {
	store := setupTestEnvironment(t)
	ctx := context.Background()

	post := storetest.NewPost("quotes")
	post.Markdown = `She said "hello" AND left`
	_, err := store.Create(ctx, post)
	require.NoError(t, err)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "Empty query lists everything", query: "  ", want: 1},
		{name: "Operator words are plain text", query: "AND", want: 1},
		{name: "Embedded quotes", query: `"hello"`, want: 1},
		{name: "No match", query: "goodbye", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts, err := store.Search(ctx, tc.query)
			require.NoError(t, err)
			assert.Len(t, posts, tc.want)
		})
	}
}

func TestSQLiteStore_ClosedStoreIsUnavailable(t *testing.T) {
	store := setupTestEnvironment(t)
	require.NoError(t, store.Close())

	_, err := store.List(context.Background())
	assert.ErrorIs(t, err, blogdesk.ErrStoreUnavailable)
}
