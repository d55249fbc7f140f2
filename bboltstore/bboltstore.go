package bboltstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.etcd.io/bbolt"

	"github.com/hypergopher/blogdesk"
)

const (
	bboltFile   = "blogdesk.db"
	bleveFile   = "blogdesk.bleve"
	bucketPosts = "posts"
)

// BBoltStore keeps posts in a bbolt bucket keyed by slug and mirrors titles and bodies into a
// bleve index for Search.
type BBoltStore struct {
	bleveIndex bleve.Index
	boltIndex  *bbolt.DB
	dataDir    string // dataDir is where the bolt file and bleve index live.
	logger     *slog.Logger
	now        func() time.Time
	mu         sync.Mutex
}

var (
	_ blogdesk.PostStore    = (*BBoltStore)(nil)
	_ blogdesk.PostSearcher = (*BBoltStore)(nil)
)

// New creates a new BBoltStore. Call Init before use.
func New(dataDir string, logger *slog.Logger) *BBoltStore {
	if logger == nil {
		logger = defaultLogger()
	}
	return &BBoltStore{
		dataDir: dataDir,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DataDir returns the directory holding the store files.
func (bbs *BBoltStore) DataDir() string {
	return bbs.dataDir
}

// Init initializes the BBolt and Bleve indexes
func (bbs *BBoltStore) Init(_ context.Context) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if bbs.boltIndex != nil {
		return nil
	}

	if err := os.MkdirAll(bbs.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	boltIndex, err := bbs.initBolt()
	if err != nil {
		return fmt.Errorf("failed to initialize bbolt: %w", err)
	}

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		_ = boltIndex.Close()
		return fmt.Errorf("failed to initialize bleve: %w", err)
	}

	bbs.boltIndex = boltIndex
	bbs.bleveIndex = bleveIndex
	return nil
}

func (bbs *BBoltStore) Close() error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	var errs []error
	if bbs.boltIndex != nil {
		errs = append(errs, bbs.boltIndex.Close())
		bbs.boltIndex = nil
	}

	if bbs.bleveIndex != nil {
		errs = append(errs, bbs.bleveIndex.Close())
		bbs.bleveIndex = nil
	}

	return errors.Join(errs...)
}

// List returns every post ordered by creation time, then slug.
func (bbs *BBoltStore) List(_ context.Context) ([]*blogdesk.Post, error) {
	db, err := bbs.bolt()
	if err != nil {
		return nil, err
	}

	posts := make([]*blogdesk.Post, 0)
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(_, v []byte) error {
			post, err := blogdesk.Deserialize(v)
			if err != nil {
				return fmt.Errorf("failed to deserialize post: %w", err)
			}
			posts = append(posts, post)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blogdesk.ErrStoreUnavailable, err)
	}

	blogdesk.SortPosts(posts)
	return posts, nil
}

// Get returns the post with the given slug.
func (bbs *BBoltStore) Get(_ context.Context, slug string) (*blogdesk.Post, error) {
	db, err := bbs.bolt()
	if err != nil {
		return nil, err
	}

	var post *blogdesk.Post
	err = db.View(func(tx *bbolt.Tx) error {
		var err error
		post, err = getPost(tx, slug)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (bbs *BBoltStore) Create(_ context.Context, post *blogdesk.Post) (*blogdesk.Post, error) {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if bbs.boltIndex == nil {
		return nil, blogdesk.ErrStoreUnavailable
	}

	created := post.Clone()
	created.Created = bbs.now()
	created.Updated = created.Created

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		if b.Get([]byte(created.Slug)) != nil {
			return fmt.Errorf("%w: %s", blogdesk.ErrPostExists, created.Slug)
		}

		return putPost(b, created)
	})
	if err != nil {
		return nil, err
	}

	// Index in Bleve
	if err := bbs.bleveIndex.Index(created.Slug, indexed(created)); err != nil {
		bbs.rollback(func(b *bbolt.Bucket) error {
			return b.Delete([]byte(created.Slug))
		})
		return nil, fmt.Errorf("failed to index post in bleve: %w", err)
	}

	return created, nil
}

func (bbs *BBoltStore) Update(_ context.Context, oldSlug string, post *blogdesk.Post) (*blogdesk.Post, error) {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if bbs.boltIndex == nil {
		return nil, blogdesk.ErrStoreUnavailable
	}

	var existing *blogdesk.Post
	updated := post.Clone()

	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		var err error
		existing, err = getPost(tx, oldSlug)
		if err != nil {
			return err
		}

		b := tx.Bucket([]byte(bucketPosts))
		if updated.Slug != oldSlug {
			if b.Get([]byte(updated.Slug)) != nil {
				return fmt.Errorf("%w: %s", blogdesk.ErrPostExists, updated.Slug)
			}
			if err := b.Delete([]byte(oldSlug)); err != nil {
				return fmt.Errorf("failed to delete post from bucket: %w", err)
			}
		}

		updated.Created = existing.Created
		updated.Updated = bbs.now()
		return putPost(b, updated)
	})
	if err != nil {
		return nil, err
	}

	batch := bbs.bleveIndex.NewBatch()
	if updated.Slug != oldSlug {
		batch.Delete(oldSlug)
	}
	if err := batch.Index(updated.Slug, indexed(updated)); err != nil {
		return nil, fmt.Errorf("failed to index post in bleve: %w", err)
	}
	if err := bbs.bleveIndex.Batch(batch); err != nil {
		bbs.rollback(func(b *bbolt.Bucket) error {
			if err := b.Delete([]byte(updated.Slug)); err != nil {
				return err
			}
			return putPost(b, existing)
		})
		return nil, fmt.Errorf("failed to index post in bleve: %w", err)
	}

	return updated, nil
}

func (bbs *BBoltStore) Delete(_ context.Context, slug string) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if bbs.boltIndex == nil {
		return blogdesk.ErrStoreUnavailable
	}

	if err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		if _, err := getPost(tx, slug); err != nil {
			return err
		}

		b := tx.Bucket([]byte(bucketPosts))
		if err := b.Delete([]byte(slug)); err != nil {
			return fmt.Errorf("failed to delete post from bucket: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := bbs.bleveIndex.Delete(slug); err != nil {
		bbs.logger.Error("failed to remove post from search index", slog.String("slug", slug), slog.Any("error", err))
	}

	return nil
}

// Search matches the query against titles and markdown. Results are ordered like List.
func (bbs *BBoltStore) Search(ctx context.Context, q string) ([]*blogdesk.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return bbs.List(ctx)
	}

	bbs.mu.Lock()
	index := bbs.bleveIndex
	bbs.mu.Unlock()
	if index == nil {
		return nil, blogdesk.ErrStoreUnavailable
	}

	count, err := index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("error counting indexed posts: %w", err)
	}
	if count == 0 {
		return []*blogdesk.Post{}, nil
	}

	request := bleve.NewSearchRequestOptions(searchQuery(q), int(count), 0, false)
	result, err := index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("error searching for posts: %w", err)
	}

	posts := make([]*blogdesk.Post, 0, len(result.Hits))
	for _, hit := range result.Hits {
		post, err := bbs.Get(ctx, hit.ID)
		if errors.Is(err, blogdesk.ErrPostNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error getting post %s: %w", hit.ID, err)
		}
		posts = append(posts, post)
	}

	blogdesk.SortPosts(posts)
	return posts, nil
}

func (bbs *BBoltStore) bolt() (*bbolt.DB, error) {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if bbs.boltIndex == nil {
		return nil, blogdesk.ErrStoreUnavailable
	}
	return bbs.boltIndex, nil
}

// rollback undoes a bolt write after the search index rejected it. The caller holds mu.
func (bbs *BBoltStore) rollback(fn func(b *bbolt.Bucket) error) {
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(bucketPosts)))
	})
	if err != nil {
		bbs.logger.Error("failed to roll back post after index failure", slog.Any("error", err))
	}
}

func (bbs *BBoltStore) initBolt() (*bbolt.DB, error) {
	boltPath := filepath.Join(bbs.dataDir, bboltFile)
	boltIndex, err := bbolt.Open(boltPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt index: %w", err)
	}

	err = boltIndex.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketPosts)); err != nil {
			return fmt.Errorf("failed to create posts bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = boltIndex.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return boltIndex, nil
}

func (bbs *BBoltStore) initBleve() (bleve.Index, error) {
	index, err := bleve.Open(filepath.Join(bbs.dataDir, bleveFile))
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		bbs.logger.Debug("Creating new bleve index")
		index, err = bleve.NewUsing(filepath.Join(bbs.dataDir, bleveFile), defineBleveMapping(), bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return index, nil
}

func defineBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("markdown", bleve.NewTextFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func searchQuery(q string) query.Query {
	title := bleve.NewMatchQuery(q)
	title.SetField("title")
	title.SetBoost(2)

	body := bleve.NewMatchQuery(q)
	body.SetField("markdown")

	return bleve.NewDisjunctionQuery(title, body)
}

func getPost(tx *bbolt.Tx, slug string) (*blogdesk.Post, error) {
	b := tx.Bucket([]byte(bucketPosts))
	if b == nil {
		return nil, fmt.Errorf("bucket not found")
	}

	data := b.Get([]byte(slug))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", blogdesk.ErrPostNotFound, slug)
	}

	post, err := blogdesk.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize post: %w", err)
	}
	return post, nil
}

func putPost(b *bbolt.Bucket, post *blogdesk.Post) error {
	postBytes, err := post.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize post: %w", err)
	}

	if err := b.Put([]byte(post.Slug), postBytes); err != nil {
		return fmt.Errorf("failed to put post in bucket: %w", err)
	}
	return nil
}

// indexed is the part of a post held in the search index.
func indexed(post *blogdesk.Post) map[string]any {
	return map[string]any{
		"title":    post.Title,
		"markdown": post.Markdown,
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelDebug,
		}))
}
