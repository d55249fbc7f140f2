package blogdesk

import "context"

type PostStore interface {
	// Init initializes the post store, such as creating the necessary tables or indexes.
	Init(ctx context.Context) error
	// List returns every post ordered by creation time, ties broken by slug.
	List(ctx context.Context) ([]*Post, error)
	// Get retrieves a post by its slug. Returns ErrPostNotFound if absent.
	Get(ctx context.Context, slug string) (*Post, error)
	// Create creates a new post. Returns ErrPostExists if the slug is taken.
	Create(ctx context.Context, post *Post) (*Post, error)
	// Update replaces the post stored under oldSlug, which may rename it to post.Slug.
	Update(ctx context.Context, oldSlug string, post *Post) (*Post, error)
	// Delete deletes a post. Returns ErrPostNotFound if absent.
	Delete(ctx context.Context, slug string) error
	// Close closes the post store.
	Close() error
}

// PostSearcher is implemented by stores that can run a full-text query over titles and bodies.
type PostSearcher interface {
	Search(ctx context.Context, query string) ([]*Post, error)
}
