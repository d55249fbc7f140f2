package bboltstore_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/bboltstore"
	"github.com/hypergopher/blogdesk/internal/storetest"
)

func setupTestEnvironment(t *testing.T) *bboltstore.BBoltStore {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := bboltstore.New(t.TempDir(), logger)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestBBoltStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) blogdesk.PostStore {
		return setupTestEnvironment(t)
	})
}

func TestBBoltStore_ReopenKeepsPostsAndIndex(t *testing.T) {
	store := setupTestEnvironment(t)
	ctx := context.Background()

	post := storetest.NewPost("kept")
	post.Markdown = "bananas are yellow"
	_, err := store.Create(ctx, post)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := bboltstore.New(store.DataDir(), nil)
	require.NoError(t, reopened.Init(ctx))
	defer reopened.Close()

	got, err := reopened.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "bananas are yellow", got.Markdown)

	found, err := reopened.Search(ctx, "bananas")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "kept", found[0].Slug)
}

func TestBBoltStore_SearchFollowsRename(t *testing.T) {
	store := setupTestEnvironment(t)
	ctx := context.Background()

	_, err := store.Create(ctx, storetest.NewPost("before"))
	require.NoError(t, err)

	renamed := storetest.NewPost("after")
	renamed.Title = "Zeppelins"
	_, err = store.Update(ctx, "before", renamed)
	require.NoError(t, err)

	found, err := store.Search(ctx, "zeppelins")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "after", found[0].Slug)
}

func TestBBoltStore_ClosedStoreIsUnavailable(t *testing.T) {
	store := setupTestEnvironment(t)
	require.NoError(t, store.Close())

	_, err := store.List(context.Background())
	assert.ErrorIs(t, err, blogdesk.ErrStoreUnavailable)

	_, err = store.Create(context.Background(), storetest.NewPost("x"))
	assert.ErrorIs(t, err, blogdesk.ErrStoreUnavailable)
}
