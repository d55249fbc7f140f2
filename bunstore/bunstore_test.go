package bunstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/bunstore"
	"github.com/hypergopher/blogdesk/internal/storetest"
)

func newTestStore(t *testing.T) *bunstore.BunStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "posts.db") + "?_fk=1&_busy_timeout=5000"
	db, err := bunstore.OpenDB(context.Background(), bunstore.DialectSQLite, dsn)
	require.NoError(t, err)

	store := bunstore.New(db)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestBunStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) blogdesk.PostStore {
		return newTestStore(t)
	})
}

func TestBunStore_InitIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Init(context.Background()))
}

func TestBunStore_SearchIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	post := storetest.NewPost("mixed")
	post.Title = "Hello World"
	_, err := store.Create(ctx, post)
	require.NoError(t, err)

	found, err := store.Search(ctx, "WORLD")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "mixed", found[0].Slug)
}

func TestBunStore_SearchTreatsWildcardsLiterally(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, storetest.NewPost("plain"))
	require.NoError(t, err)
	special := storetest.NewPost("special")
	special.Title = "100% done"
	special.Markdown = "snake_case and bang!"
	_, err = store.Create(ctx, special)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "%", want: []string{"special"}},
		{query: "_", want: []string{"special"}},
		{query: "e_c", want: []string{"special"}},
		{query: "bang!", want: []string{"special"}},
		{query: "!%", want: nil},
		{query: "body", want: []string{"plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			found, err := store.Search(ctx, tt.query)
			require.NoError(t, err)
			var slugs []string
			for _, p := range found {
				slugs = append(slugs, p.Slug)
			}
			assert.Equal(t, tt.want, slugs)
		})
	}
}

func TestOpenDB_UnknownDialect(t *testing.T) {
	_, err := bunstore.OpenDB(context.Background(), "oracle", "")
	assert.Error(t, err)
}
