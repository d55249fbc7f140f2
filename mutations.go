package blogdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
)

const (
	AdminPath = "/posts/admin"
	PostsPath = "/posts"
)

// Operation names a mutation entry point.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// FailureInjector is consulted after validation and before the store is touched. A non-nil error
// aborts the mutation as if the store had failed. Only tests and demos install one.
type FailureInjector func(ctx context.Context, op Operation, post *Post) error

// Outcome is the result of a mutation that did not fail.
// When Validation.HasErrors is true nothing was persisted and Redirect is empty.
type Outcome struct {
	Validation Validation
	Post       *Post
	Redirect   string
}

// Mutator validates post mutations and applies them to a PostStore.
type Mutator struct {
	store  PostStore
	inject FailureInjector
	events *Broadcaster
	logger *slog.Logger
}

// MutatorOption configures a Mutator.
type MutatorOption func(*Mutator)

// WithFailureInjector installs a failure-injection hook.
func WithFailureInjector(fn FailureInjector) MutatorOption {
	return func(m *Mutator) {
		m.inject = fn
	}
}

// WithBroadcaster publishes a ChangeEvent for every successful mutation.
func WithBroadcaster(b *Broadcaster) MutatorOption {
	return func(m *Mutator) {
		m.events = b
	}
}

// WithLogger sets the logger. The default is a debug logger to stderr.
func WithLogger(logger *slog.Logger) MutatorOption {
	return func(m *Mutator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMutator creates a Mutator over the given store.
func NewMutator(store PostStore, opts ...MutatorOption) *Mutator {
	m := &Mutator{store: store}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = defaultLogger()
	}
	return m
}

// CreatePost validates the form and persists a new post. Any store or injected failure is returned
// wrapped in ErrCreateFailed and leaves the store untouched.
func (m *Mutator) CreatePost(ctx context.Context, form PostForm) (Outcome, error) {
	result := Validate(form)
	if result.HasErrors {
		return Outcome{Validation: result}, nil
	}

	candidate := form.Post()
	if err := m.injected(ctx, OpCreate, candidate); err != nil {
		m.logger.Warn("post creation aborted", slog.String("slug", form.Slug), slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	post, err := m.store.Create(ctx, candidate)
	if err != nil {
		m.logger.Error("post creation failed", slog.String("slug", form.Slug), slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	m.logger.Info("post created", slog.String("slug", post.Slug))
	m.publish(ChangeEvent{Type: ChangeCreated, Slug: post.Slug, Title: post.Title})

	return Outcome{Post: post, Redirect: PostPath(post.Slug)}, nil
}

// UpdatePost validates the form and replaces the post stored under originalSlug.
// ErrPostNotFound is returned when originalSlug does not exist.
func (m *Mutator) UpdatePost(ctx context.Context, originalSlug string, form PostForm) (Outcome, error) {
	result := Validate(form)
	if result.HasErrors {
		return Outcome{Validation: result}, nil
	}

	candidate := form.Post()
	if err := m.injected(ctx, OpUpdate, candidate); err != nil {
		return Outcome{}, fmt.Errorf("error updating post %s: %w", originalSlug, err)
	}

	post, err := m.store.Update(ctx, originalSlug, candidate)
	if err != nil {
		m.logger.Error("post update failed", slog.String("slug", originalSlug), slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("error updating post %s: %w", originalSlug, err)
	}

	m.logger.Info("post updated", slog.String("slug", originalSlug), slog.String("newSlug", post.Slug))
	m.publish(ChangeEvent{Type: ChangeUpdated, Slug: post.Slug, PreviousSlug: originalSlug, Title: post.Title})

	return Outcome{Post: post, Redirect: AdminPath}, nil
}

// DeletePost removes the post. Deleting a post that does not exist is a no-op.
func (m *Mutator) DeletePost(ctx context.Context, slug string) (Outcome, error) {
	if err := m.injected(ctx, OpDelete, &Post{Slug: slug}); err != nil {
		return Outcome{}, fmt.Errorf("error deleting post %s: %w", slug, err)
	}

	err := m.store.Delete(ctx, slug)
	switch {
	case errors.Is(err, ErrPostNotFound):
		m.logger.Debug("post already deleted", slog.String("slug", slug))
	case err != nil:
		m.logger.Error("post delete failed", slog.String("slug", slug), slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("error deleting post %s: %w", slug, err)
	default:
		m.logger.Info("post deleted", slog.String("slug", slug))
		m.publish(ChangeEvent{Type: ChangeDeleted, Slug: slug})
	}

	return Outcome{Redirect: AdminPath}, nil
}

func (m *Mutator) injected(ctx context.Context, op Operation, post *Post) error {
	if m.inject == nil {
		return nil
	}
	return m.inject(ctx, op, post)
}

func (m *Mutator) publish(event ChangeEvent) {
	if m.events != nil {
		m.events.Publish(event)
	}
}

// PostPath returns the public URL path of a post.
func PostPath(slug string) string {
	return PostsPath + "/" + url.PathEscape(slug)
}

// AdminPostPath returns the admin edit URL path of a post.
func AdminPostPath(slug string) string {
	return AdminPath + "/" + url.PathEscape(slug)
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelDebug,
		}))
}
