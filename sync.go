package blogdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SyncResult counts what SyncAll did.
type SyncResult struct {
	Created int
	Updated int
	Skipped int
}

// Syncer keeps a PostStore in step with a content directory.
type Syncer struct {
	fs     FileSystem
	store  PostStore
	logger *slog.Logger
	events *Broadcaster

	mu    sync.Mutex
	paths map[string]string // file path -> slug, for removals
}

type SyncerOption func(*Syncer)

func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncBroadcaster publishes a ChangeEvent for every change Watch applies.
func WithSyncBroadcaster(b *Broadcaster) SyncerOption {
	return func(s *Syncer) {
		s.events = b
	}
}

func NewSyncer(fs FileSystem, store PostStore, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		fs:     fs,
		store:  store,
		logger: defaultLogger(),
		paths:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll upserts every post file into the store. Files that fail to parse or validate are logged
// and skipped; only I/O and store errors stop it.
func (s *Syncer) SyncAll(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	entries, errs := s.fs.Walk(ctx)

	for entry := range entries {
		if entry.Err != nil {
			s.logger.Warn("skipping unreadable post file", slog.String("path", entry.Path), slog.Any("error", entry.Err))
			result.Skipped++
			continue
		}

		created, err := s.upsert(ctx, entry.Post)
		switch {
		case errors.Is(err, ErrInvalidPostFile):
			result.Skipped++
			continue
		case err != nil:
			// Drain the walker so its goroutine can exit.
			for range entries {
			}
			return result, err
		case created:
			result.Created++
		default:
			result.Updated++
		}
	}

	// Check for any errors from Walk
	for err := range errs {
		return result, fmt.Errorf("error walking filesystem: %w", err)
	}

	return result, nil
}

// Export writes every stored post to the file system.
func (s *Syncer) Export(ctx context.Context) (int, error) {
	posts, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	for i, post := range posts {
		if err := s.fs.Write(ctx, post); err != nil {
			return i, fmt.Errorf("error writing post %s: %w", post.Slug, err)
		}
	}
	return len(posts), nil
}

func (s *Syncer) upsert(ctx context.Context, post *Post) (bool, error) {
	if v := Validate(post.Form()); v.HasErrors {
		s.logger.Warn("skipping invalid post file", slog.String("slug", post.Slug), slog.Any("errors", v.Errors))
		return false, ErrInvalidPostFile
	}

	_, err := s.store.Create(ctx, post)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrPostExists) {
		return false, fmt.Errorf("error creating post %s: %w", post.Slug, err)
	}

	// If the post already exists, update it
	if _, err := s.store.Update(ctx, post.Slug, post); err != nil {
		return false, fmt.Errorf("error updating existing post %s: %w", post.Slug, err)
	}
	return false, nil
}

// PathReader is implemented by file systems that can load a single file by path. Watch needs it.
type PathReader interface {
	ReadFile(path string) (*Post, error)
	Root() string
}

// Watch applies file changes under the content directory to the store until ctx is done.
// Subdirectories that exist when Watch starts are watched as well.
func (s *Syncer) Watch(ctx context.Context) error {
	reader, ok := s.fs.(PathReader)
	if !ok {
		return fmt.Errorf("file system does not support watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, reader.Root()); err != nil {
		return err
	}

	s.logger.Info("watching content directory", slog.String("dir", reader.Root()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, reader, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

func (s *Syncer) handleEvent(ctx context.Context, reader PathReader, event fsnotify.Event) {
	if !IsPostFile(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		post, err := reader.ReadFile(event.Name)
		if err != nil {
			s.logger.Error("failed to read post file", slog.String("path", event.Name), slog.Any("error", err))
			return
		}

		s.mu.Lock()
		previous, seen := s.paths[event.Name]
		s.paths[event.Name] = post.Slug
		s.mu.Unlock()

		// A frontmatter slug change renames the stored post.
		if seen && previous != post.Slug {
			if _, err := s.store.Update(ctx, previous, post); err == nil {
				s.logger.Info("renamed post from file", slog.String("from", previous), slog.String("to", post.Slug))
				s.publish(ChangeEvent{Type: ChangeUpdated, Slug: post.Slug, PreviousSlug: previous, Title: post.Title})
				return
			}
		}

		created, err := s.upsert(ctx, post)
		switch {
		case errors.Is(err, ErrInvalidPostFile):
			return
		case err != nil:
			s.logger.Error("failed to sync post file", slog.String("path", event.Name), slog.Any("error", err))
			return
		}
		s.logger.Info("synced post file", slog.String("path", event.Name), slog.String("slug", post.Slug))

		change := ChangeUpdated
		if created {
			change = ChangeCreated
		}
		s.publish(ChangeEvent{Type: change, Slug: post.Slug, Title: post.Title})

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.mu.Lock()
		slug, seen := s.paths[event.Name]
		delete(s.paths, event.Name)
		s.mu.Unlock()

		if !seen {
			slug = SlugifyPath(reader.Root(), event.Name).Slug
		}

		err := s.store.Delete(ctx, slug)
		switch {
		case errors.Is(err, ErrPostNotFound):
			return
		case err != nil:
			s.logger.Error("failed to remove post", slog.String("slug", slug), slog.Any("error", err))
			return
		}
		s.logger.Info("removed post for deleted file", slog.String("path", event.Name), slog.String("slug", slug))
		s.publish(ChangeEvent{Type: ChangeDeleted, Slug: slug})
	}
}

func (s *Syncer) publish(event ChangeEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
