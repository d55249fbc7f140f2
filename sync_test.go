package blogdesk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/logging"
)

func newSyncer(t *testing.T, root string, opts ...blogdesk.SyncerOption) (*blogdesk.Syncer, *blogdesk.MemoryPostStore) {
	t.Helper()
	store := blogdesk.NewMemoryPostStore()
	require.NoError(t, store.Init(context.Background()))
	lfs := blogdesk.NewLocalFileSystem(root, blogdesk.FrontmatterYAML)
	opts = append([]blogdesk.SyncerOption{blogdesk.WithSyncLogger(logging.Discard())}, opts...)
	return blogdesk.NewSyncer(lfs, store, opts...), store
}

func TestSyncer_SyncAll(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hello.md"), "---\ntitle: Hello\n---\n# Hello\n")
	writeFile(t, filepath.Join(root, "2024-02-03-dated.md"), "---\ntitle: Dated\n---\nBody\n")
	writeFile(t, filepath.Join(root, "untitled.md"), "Body without a title\n")

	syncer, store := newSyncer(t, root)

	result, err := syncer.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, blogdesk.SyncResult{Created: 2, Skipped: 1}, result)

	got, err := store.Get(ctx, "dated")
	require.NoError(t, err)
	assert.Equal(t, "Dated", got.Title)

	writeFile(t, filepath.Join(root, "hello.md"), "---\ntitle: Hello again\n---\n# Hello\n")
	result, err = syncer.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, blogdesk.SyncResult{Updated: 2, Skipped: 1}, result)

	got, err = store.Get(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Title)
}

func TestSyncer_SyncAllSkipsUnparsableFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a-good.md"), "---\ntitle: A\n---\nA\n")
	writeFile(t, filepath.Join(root, "b-bad.md"), "---\ntitle: never closed\n")
	writeFile(t, filepath.Join(root, "c-good.md"), "---\ntitle: C\n---\nC\n")

	syncer, store := newSyncer(t, root)

	result, err := syncer.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, blogdesk.SyncResult{Created: 2, Skipped: 1}, result)

	posts, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	_, err = store.Get(ctx, "c-good")
	assert.NoError(t, err)
}

func TestSyncer_SyncAllStoreFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "---\ntitle: A\n---\nA\n")
	writeFile(t, filepath.Join(root, "b.md"), "---\ntitle: B\n---\nB\n")

	syncer, store := newSyncer(t, root)
	require.NoError(t, store.Close())

	_, err := syncer.SyncAll(context.Background())
	assert.ErrorIs(t, err, blogdesk.ErrStoreUnavailable)
}

func TestSyncer_Export(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	syncer, store := newSyncer(t, root)

	for _, slug := range []string{"one", "two"} {
		_, err := store.Create(ctx, &blogdesk.Post{Slug: slug, Title: "Title " + slug, Markdown: "Body " + slug})
		require.NoError(t, err)
	}

	n, err := syncer.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	content, err := os.ReadFile(filepath.Join(root, "two.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Title two\nslug: two\n---\n\nBody two", string(content))
}

func TestSyncer_Watch(t *testing.T) {
	root := t.TempDir()
	events := blogdesk.NewBroadcaster(16)
	syncer, store := newSyncer(t, root, blogdesk.WithSyncBroadcaster(events))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- syncer.Watch(ctx) }()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "watched.md")
	writeFile(t, path, "---\ntitle: Watched\n---\nBody\n")

	assert.Eventually(t, func() bool {
		post, err := store.Get(context.Background(), "watched")
		return err == nil && post.Title == "Watched"
	}, 2*time.Second, 20*time.Millisecond)

	writeFile(t, path, "---\ntitle: Watched\nslug: renamed\n---\nBody\n")
	assert.Eventually(t, func() bool {
		_, errOld := store.Get(context.Background(), "watched")
		_, errNew := store.Get(context.Background(), "renamed")
		return errNew == nil && errOld != nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		posts, err := store.List(context.Background())
		return err == nil && len(posts) == 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

type walkOnly struct{ blogdesk.FileSystem }

func TestSyncer_WatchNeedsPathReader(t *testing.T) {
	store := blogdesk.NewMemoryPostStore()
	syncer := blogdesk.NewSyncer(walkOnly{}, store, blogdesk.WithSyncLogger(logging.Discard()))
	assert.Error(t, syncer.Watch(context.Background()))
}
