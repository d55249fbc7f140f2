package blogdesk_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogdesk"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
		wantSlug  string
		wantBody  string
		wantErr   bool
	}{
		{
			name:      "YAML",
			content:   "---\ntitle: Hello\nslug: hello-there\n---\n\n# Body\n",
			wantTitle: "Hello",
			wantSlug:  "hello-there",
			wantBody:  "# Body\n",
		},
		{
			name:      "TOML",
			content:   "+++\ntitle = \"Hello\"\n+++\n# Body\n",
			wantTitle: "Hello",
			wantBody:  "# Body\n",
		},
		{
			name:     "No frontmatter",
			content:  "# Just markdown\n",
			wantBody: "# Just markdown\n",
		},
		{
			name:     "Empty block keeps later rules in the body",
			content:  "---\n---\nIntro\n\n---\n\nMore\n",
			wantBody: "Intro\n\n---\n\nMore\n",
		},
		{
			name:      "Windows line endings",
			content:   "---\r\ntitle: Hello\r\n---\r\nBody\r\n",
			wantTitle: "Hello",
			wantBody:  "Body\n",
		},
		{
			name:    "Unterminated",
			content: "---\ntitle: Hello\n",
			wantErr: true,
		},
		{
			name:    "Malformed YAML",
			content: "---\ntitle: [oops\n---\nBody\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body, err := blogdesk.ParseFrontmatter([]byte(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, meta.Title)
			assert.Equal(t, tt.wantSlug, meta.Slug)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestFormatPostFile(t *testing.T) {
	post := &blogdesk.Post{Slug: "hello", Title: "Hello: World", Markdown: "# Body\n"}

	for _, format := range []blogdesk.FrontmatterFormat{blogdesk.FrontmatterYAML, blogdesk.FrontmatterTOML} {
		t.Run(string(format), func(t *testing.T) {
			content, err := blogdesk.FormatPostFile(post, format)
			require.NoError(t, err)

			meta, body, err := blogdesk.ParseFrontmatter(content)
			require.NoError(t, err)
			assert.Equal(t, post.Title, meta.Title)
			assert.Equal(t, post.Slug, meta.Slug)
			assert.Equal(t, post.Markdown, body)
		})
	}

	_, err := blogdesk.FormatPostFile(post, "json")
	assert.Error(t, err)
}

func TestLocalFileSystem_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	lfs := blogdesk.NewLocalFileSystem(t.TempDir(), blogdesk.FrontmatterTOML)

	post := &blogdesk.Post{Slug: "hello", Title: "Hello", Markdown: "# Hi\n"}
	require.NoError(t, lfs.Write(ctx, post))

	got, err := lfs.Read(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Slug)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "# Hi\n", got.Markdown)
	assert.False(t, got.Created.IsZero())

	require.NoError(t, lfs.Delete(ctx, "hello"))
	_, err = lfs.Read(ctx, "hello")
	assert.ErrorIs(t, err, blogdesk.ErrPostNotFound)
	assert.ErrorIs(t, lfs.Delete(ctx, "hello"), blogdesk.ErrPostNotFound)
}

func TestLocalFileSystem_Walk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2024-01-01-dated.md"), "---\ntitle: Dated\n---\nBody\n")
	writeFile(t, filepath.Join(root, "guides", "setup", "index.md"), "---\ntitle: Setup\n---\nBody\n")
	writeFile(t, filepath.Join(root, "custom.md"), "---\ntitle: Custom\nslug: chosen\n---\nBody\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a post")

	lfs := blogdesk.NewLocalFileSystem(root, blogdesk.FrontmatterYAML)
	entries, errs := lfs.Walk(context.Background())

	var slugs []string
	for entry := range entries {
		require.NoError(t, entry.Err)
		slugs = append(slugs, entry.Post.Slug)
	}
	for err := range errs {
		require.NoError(t, err)
	}

	sort.Strings(slugs)
	assert.Equal(t, []string{"chosen", "dated", "guides-setup"}, slugs)
}

func TestLocalFileSystem_WalkContinuesPastBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a-good.md"), "---\ntitle: A\n---\nA\n")
	writeFile(t, filepath.Join(root, "b-broken.md"), "---\ntitle: never closed\n")
	writeFile(t, filepath.Join(root, "c-good.md"), "---\ntitle: C\n---\nC\n")

	lfs := blogdesk.NewLocalFileSystem(root, blogdesk.FrontmatterYAML)
	entries, errs := lfs.Walk(context.Background())

	var good []string
	var bad []error
	for entry := range entries {
		if entry.Err != nil {
			assert.Nil(t, entry.Post)
			assert.Equal(t, "b-broken.md", filepath.Base(entry.Path))
			bad = append(bad, entry.Err)
			continue
		}
		good = append(good, entry.Post.Slug)
	}
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a-good", "c-good"}, good)
	require.Len(t, bad, 1)
	assert.ErrorIs(t, bad[0], blogdesk.ErrInvalidPostFile)
	assert.ErrorContains(t, bad[0], "b-broken.md")
}

func TestLocalFileSystem_ReadInvalidFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.md"), "+++\ntitle = \"x\"\n")

	lfs := blogdesk.NewLocalFileSystem(root, blogdesk.FrontmatterYAML)
	_, err := lfs.Read(context.Background(), "broken")
	assert.ErrorIs(t, err, blogdesk.ErrInvalidPostFile)
}

func TestFrontmatterFormat_IsValid(t *testing.T) {
	assert.True(t, blogdesk.FrontmatterYAML.IsValid())
	assert.True(t, blogdesk.FrontmatterTOML.IsValid())
	assert.False(t, blogdesk.FrontmatterFormat("json").IsValid())
	assert.True(t, blogdesk.IsPostFile("a/b.md"))
	assert.False(t, blogdesk.IsPostFile("a/b.markdown"))
}
