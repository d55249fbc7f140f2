// Package storetest holds the behaviour every blogdesk.PostStore must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
)

// Factory returns a fresh, initialised store. The store is closed by the suite.
type Factory func(t *testing.T) blogdesk.PostStore

// NewPost returns a valid post for slug.
func NewPost(slug string) *blogdesk.Post {
	return &blogdesk.Post{
		Slug:     slug,
		Title:    "Title of " + slug,
		Markdown: "# " + slug + "\n\nBody of " + slug,
	}
}

// Run runs the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateThenGet", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		created, err := store.Create(ctx, NewPost("first"))
		require.NoError(t, err)
		assert.False(t, created.Created.IsZero())
		assert.Equal(t, created.Created, created.Updated)

		got, err := store.Get(ctx, "first")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Slug)
		assert.Equal(t, "Title of first", got.Title)
		assert.Equal(t, "# first\n\nBody of first", got.Markdown)
		assert.True(t, created.Created.Equal(got.Created))
	})

	t.Run("CreateConflict", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		_, err := store.Create(ctx, NewPost("dup"))
		require.NoError(t, err)

		again := NewPost("dup")
		again.Title = "Other"
		_, err = store.Create(ctx, again)
		assert.ErrorIs(t, err, blogdesk.ErrPostExists)

		got, err := store.Get(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "Title of dup", got.Title)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := open(t, newStore)

		_, err := store.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)
	})

	t.Run("ListOrder", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		posts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)

		for _, slug := range []string{"c", "a", "b"} {
			_, err := store.Create(ctx, NewPost(slug))
			require.NoError(t, err)
		}

		posts, err = store.List(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)

		for i := 1; i < len(posts); i++ {
			prev, cur := posts[i-1], posts[i]
			ordered := prev.Created.Before(cur.Created) ||
				(prev.Created.Equal(cur.Created) && prev.Slug < cur.Slug)
			assert.True(t, ordered, "%s should sort before %s", prev.Slug, cur.Slug)
		}
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		created, err := store.Create(ctx, NewPost("same"))
		require.NoError(t, err)

		changed := NewPost("same")
		changed.Title = "New title"
		changed.Markdown = "new body"
		updated, err := store.Update(ctx, "same", changed)
		require.NoError(t, err)
		assert.True(t, created.Created.Equal(updated.Created))
		assert.False(t, updated.Updated.Before(created.Updated))

		got, err := store.Get(ctx, "same")
		require.NoError(t, err)
		assert.Equal(t, "New title", got.Title)
		assert.Equal(t, "new body", got.Markdown)
	})

	t.Run("UpdateRename", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		created, err := store.Create(ctx, NewPost("a"))
		require.NoError(t, err)

		renamed := NewPost("b")
		renamed.Title = "B"
		_, err = store.Update(ctx, "a", renamed)
		require.NoError(t, err)

		_, err = store.Get(ctx, "a")
		assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)

		got, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "B", got.Title)
		assert.True(t, created.Created.Equal(got.Created))

		posts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})

	t.Run("UpdateRenameConflict", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		for _, slug := range []string{"a", "b"} {
			_, err := store.Create(ctx, NewPost(slug))
			require.NoError(t, err)
		}

		_, err := store.Update(ctx, "a", NewPost("b"))
		assert.ErrorIs(t, err, blogdesk.ErrPostExists)

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Title of a", got.Title)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := open(t, newStore)

		_, err := store.Update(context.Background(), "ghost", NewPost("ghost"))
		assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)
	})

	t.Run("DeleteTwice", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		_, err := store.Create(ctx, NewPost("gone"))
		require.NoError(t, err)
		_, err = store.Create(ctx, NewPost("kept"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "gone"))

		_, err = store.Get(ctx, "gone")
		assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)

		err = store.Delete(ctx, "gone")
		assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)

		posts, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "kept", posts[0].Slug)
	})

	t.Run("ReturnedPostsAreCopies", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		post := NewPost("copy")
		_, err := store.Create(ctx, post)
		require.NoError(t, err)
		post.Title = "mutated"

		got, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "Title of copy", got.Title)
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		store := open(t, newStore)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(ctx, NewPost(fmt.Sprintf("post-%d", i)))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		posts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, posts, 10)
	})

	if _, ok := open(t, newStore).(blogdesk.PostSearcher); ok {
		t.Run("Search", func(t *testing.T) {
			store := open(t, newStore)
			ctx := context.Background()

			golang := NewPost("golang")
			golang.Title = "Writing Go"
			golang.Markdown = "Channels and goroutines"
			rust := NewPost("rust")
			rust.Title = "Writing Rust"
			rust.Markdown = "Ownership and borrowing"

			for _, p := range []*blogdesk.Post{golang, rust} {
				_, err := store.Create(ctx, p)
				require.NoError(t, err)
			}

			searcher := store.(blogdesk.PostSearcher)

			found, err := searcher.Search(ctx, "goroutines")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "golang", found[0].Slug)

			found, err = searcher.Search(ctx, "writing")
			require.NoError(t, err)
			assert.Len(t, found, 2)

			require.NoError(t, store.Delete(ctx, "golang"))
			found, err = searcher.Search(ctx, "goroutines")
			require.NoError(t, err)
			assert.Empty(t, found)
		})
	}
}

func open(t *testing.T, newStore Factory) blogdesk.PostStore {
	t.Helper()
	store := newStore(t)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
