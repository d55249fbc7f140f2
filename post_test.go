package blogdesk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
)

func TestPost_UpdatedDate(t *testing.T) {
	tests := []struct {
		name     string
		post     blogdesk.Post
		expected string
	}{
		{
			name:     "Never written",
			post:     blogdesk.Post{},
			expected: "",
		},
		{
			name:     "Written",
			post:     blogdesk.Post{Updated: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)},
			expected: "Mar 9, 2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected != "", tt.post.HasUpdated())
			assert.Equal(t, tt.expected, tt.post.UpdatedDate())
		})
	}
}

func TestPost_FormRoundTrip(t *testing.T) {
	form := blogdesk.PostForm{Slug: "s", Title: "T", Markdown: "M"}
	post := form.Post()

	assert.True(t, post.Created.IsZero())
	assert.Equal(t, form, post.Form())
}

func TestPost_Clone(t *testing.T) {
	var nilPost *blogdesk.Post
	assert.Nil(t, nilPost.Clone())

	post := &blogdesk.Post{Slug: "s", Title: "T"}
	cp := post.Clone()
	cp.Title = "changed"
	assert.Equal(t, "T", post.Title)
}

func TestPost_Serialize(t *testing.T) {
	post := &blogdesk.Post{
		Slug:     "hello",
		Title:    "Hello",
		Markdown: "# Hi",
		Created:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Updated:  time.Date(2024, 1, 3, 3, 4, 5, 0, time.UTC),
	}

	data, err := post.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slug":"hello"`)

	decoded, err := blogdesk.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, post, decoded)

	_, err = blogdesk.Deserialize([]byte("{"))
	assert.Error(t, err)
}

func TestPost_ETag(t *testing.T) {
	base := blogdesk.Post{
		Slug:     "a",
		Title:    "Title",
		Markdown: "Body",
		Updated:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	tag := base.ETag("html")
	assert.Equal(t, tag, base.ETag("html"))
	assert.NotEqual(t, tag, base.ETag("json"))

	tests := []struct {
		name   string
		change func(p *blogdesk.Post)
	}{
		{name: "Title", change: func(p *blogdesk.Post) { p.Title = "Other" }},
		{name: "Slug", change: func(p *blogdesk.Post) { p.Slug = "b" }},
		{name: "Markdown", change: func(p *blogdesk.Post) { p.Markdown = "Other" }},
		{name: "Updated", change: func(p *blogdesk.Post) { p.Updated = p.Updated.Add(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.change(&changed)
			assert.NotEqual(t, tag, changed.ETag("html"))
		})
	}
}
