package blogdesk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hypergopher/blogdesk"
)

func TestSlugifyPath(t *testing.T) {
	fileTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UTC()
	tests := []struct {
		name                 string
		fullPath             string
		expectedSlug         string
		expectedFileTimePath string
		expectedFileTime     *time.Time
	}{
		{
			name:                 "Path with date in directory should not parse the date",
			fullPath:             "/path/to/files/2024-01-01/my-post.md",
			expectedSlug:         "2024-01-01-my-post",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
		{
			name:                 "Path with date in file name should drop the date",
			fullPath:             "/path/to/files/2024-01-01-my-post.md",
			expectedSlug:         "my-post",
			expectedFileTimePath: "2024-01-01",
			expectedFileTime:     &fileTime,
		},
		{
			name:                 "Path with nested directory and date in file name",
			fullPath:             "/path/to/files/foobar/2024-01-01-my-post.md",
			expectedSlug:         "foobar-my-post",
			expectedFileTimePath: "2024-01-01",
			expectedFileTime:     &fileTime,
		},
		{
			name:                 "Path with index.md file",
			fullPath:             "/path/to/files/foobar/my-post/index.md",
			expectedSlug:         "foobar-my-post",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
		{
			name:                 "Path without date",
			fullPath:             "/path/to/files/my-post.md",
			expectedSlug:         "my-post",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
		{
			name:                 "Invalid date is kept",
			fullPath:             "/path/to/files/2024-13-45-my-post.md",
			expectedSlug:         "2024-13-45-my-post",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
		{
			name:                 "Spaces and capitals are slugified",
			fullPath:             "/path/to/files/My First Post.md",
			expectedSlug:         "my-first-post",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
		{
			name:                 "Empty path",
			fullPath:             "",
			expectedSlug:         "",
			expectedFileTimePath: "",
			expectedFileTime:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slugPath := blogdesk.SlugifyPath("/path/to/files", tt.fullPath)
			assert.Equal(t, tt.expectedSlug, slugPath.Slug)
			assert.Equal(t, tt.expectedFileTimePath, slugPath.FileTimePath)
			assert.Equal(t, tt.expectedFileTime, slugPath.FileTime)
		})
	}
}

func TestSuggestSlug(t *testing.T) {
	assert.Equal(t, "my-first-post", blogdesk.SuggestSlug("My First Post!"))
	assert.Equal(t, "creme-brulee", blogdesk.SuggestSlug("Crème Brûlée"))
	assert.True(t, blogdesk.IsSlug(blogdesk.SuggestSlug("Hello, World")))
	assert.False(t, blogdesk.IsSlug("Not A Slug"))
}
