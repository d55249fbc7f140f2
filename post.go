package blogdesk

import (
	"encoding/json"
	"strings"
	"time"
)

// Post represents a Markdown blog post
type Post struct {
	Slug     string    `json:"slug"`     // Slug is the unique, URL-friendly key of the post
	Title    string    `json:"title"`    // Title is the human-readable name of the post
	Markdown string    `json:"markdown"` // Markdown is the raw post body
	Created  time.Time `json:"created"`  // Created is set by the store when the post is first persisted
	Updated  time.Time `json:"updated"`  // Updated is set by the store on every write
}

// PostForm is a candidate post as submitted by a client. Missing fields are empty strings.
type PostForm struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Post converts the form into a Post without timestamps.
func (f PostForm) Post() *Post {
	return &Post{
		Slug:     f.Slug,
		Title:    f.Title,
		Markdown: f.Markdown,
	}
}

// Form returns the editable fields of the post.
func (p *Post) Form() PostForm {
	return PostForm{
		Slug:     p.Slug,
		Title:    p.Title,
		Markdown: p.Markdown,
	}
}

// HasUpdated returns true if the post has been written at least once
func (p *Post) HasUpdated() bool {
	return !p.Updated.IsZero()
}

// UpdatedDate returns the last modified date in the format Jan 2, 2006
func (p *Post) UpdatedDate() string {
	if !p.HasUpdated() {
		return ""
	}

	return p.Updated.Format("Jan 2, 2006")
}

// ETag returns a content hash over everything a post page shows. variant separates
// representations served from the same URL.
func (p *Post) ETag(variant string) string {
	return GenerateETag(strings.Join([]string{
		variant,
		p.Slug,
		p.Title,
		p.Markdown,
		p.Updated.UTC().Format(time.RFC3339Nano),
	}, "\x00"))
}

// Clone returns a copy of the post so stores never hand out shared pointers.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Serialize serializes the post to a byte slice
func (p *Post) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// Deserialize deserializes the byte slice to a post
func Deserialize(data []byte) (*Post, error) {
	var post Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, err
	}
	return &post, nil
}
