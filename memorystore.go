package blogdesk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// MemoryPostStore implements PostStore using in-memory storage
type MemoryPostStore struct {
	posts  map[string]*Post
	closed bool
	now    func() time.Time
	mu     sync.RWMutex
}

// NewMemoryPostStore creates a new MemoryPostStore
func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{
		posts: make(map[string]*Post),
		now:   time.Now,
	}
}

// Init initializes the post store
func (m *MemoryPostStore) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = false
	return nil
}

// Close closes the post store. Further calls fail with ErrStoreUnavailable until Init is called again.
func (m *MemoryPostStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// List returns all posts in creation order
func (m *MemoryPostStore) List(_ context.Context) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreUnavailable
	}

	posts := make([]*Post, 0, len(m.posts))
	for _, post := range m.posts {
		posts = append(posts, post.Clone())
	}
	SortPosts(posts)

	return posts, nil
}

// Get retrieves a post from the store
func (m *MemoryPostStore) Get(_ context.Context, slug string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreUnavailable
	}

	post, exists := m.posts[slug]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}

	return post.Clone(), nil
}

// Create adds a new post to the store
func (m *MemoryPostStore) Create(_ context.Context, post *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreUnavailable
	}

	if _, exists := m.posts[post.Slug]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPostExists, post.Slug)
	}

	stored := post.Clone()
	stored.Created = m.now().UTC()
	stored.Updated = stored.Created
	m.posts[stored.Slug] = stored

	return stored.Clone(), nil
}

// Update replaces the post stored under oldSlug
func (m *MemoryPostStore) Update(_ context.Context, oldSlug string, post *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreUnavailable
	}

	current, exists := m.posts[oldSlug]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, oldSlug)
	}

	if post.Slug != oldSlug {
		if _, taken := m.posts[post.Slug]; taken {
			return nil, fmt.Errorf("%w: %s", ErrPostExists, post.Slug)
		}
	}

	stored := post.Clone()
	stored.Created = current.Created
	stored.Updated = m.now().UTC()

	delete(m.posts, oldSlug)
	m.posts[stored.Slug] = stored

	return stored.Clone(), nil
}

// Delete removes a post from the store
func (m *MemoryPostStore) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreUnavailable
	}

	if _, exists := m.posts[slug]; !exists {
		return fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}

	delete(m.posts, slug)
	return nil
}

// Search splits the query into whitespace-separated terms and returns posts whose title or markdown
// contains any of them, compared case-folded. Terms match as substrings, so "go" finds "goroutines";
// the bleve-backed store matches analysed words instead. A blank query returns every post.
func (m *MemoryPostStore) Search(ctx context.Context, query string) ([]*Post, error) {
	posts, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	terms := strings.Fields(fold.String(query))
	if len(terms) == 0 {
		return posts, nil
	}

	matched := make([]*Post, 0)
	for _, post := range posts {
		title, markdown := fold.String(post.Title), fold.String(post.Markdown)
		for _, term := range terms {
			if strings.Contains(title, term) || strings.Contains(markdown, term) {
				matched = append(matched, post)
				break
			}
		}
	}

	return matched, nil
}

// SortPosts orders posts by creation time, then slug.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if c := compareTime(posts[i].Created, posts[j].Created); c != 0 {
			return c < 0
		}
		return posts[i].Slug < posts[j].Slug
	})
}

// compareTime compares two time.Time values
func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
