package blogdesk

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
)

// Rendered is a post body converted to HTML.
type Rendered struct {
	HTML        string         // HTML is the rendered body; raw HTML in the source is omitted
	Meta        map[string]any // Meta holds frontmatter found at the top of the markdown, if any
	ETag        string         // ETag is a content hash of the markdown source
	ReadingTime string         // ReadingTime is the estimated reading time
}

// MarkdownRenderer converts post markdown to HTML.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer returns a renderer that uses goldmark with the following extensions:
// - GFM
// - Typographer
// - Footnote
// - Frontmatter
// It also enables the following parser options:
// - AutoHeadingID
// - Attribute
func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			extension.Footnote,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
	)

	return &MarkdownRenderer{md: md}
}

// Render converts the markdown to HTML.
func (r *MarkdownRenderer) Render(markdown string) (Rendered, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext()
	if err := r.md.Convert([]byte(markdown), &buf, parser.WithContext(ctx)); err != nil {
		return Rendered{}, fmt.Errorf("failed to convert markdown: %w", err)
	}

	rendered := Rendered{
		HTML:        buf.String(),
		ETag:        GenerateETag(markdown),
		ReadingTime: EstimateReadingTime(markdown),
	}

	data := frontmatter.Get(ctx)
	if data == nil {
		return rendered, nil
	}

	meta := map[string]any{}
	if err := data.Decode(&meta); err != nil {
		return rendered, fmt.Errorf("failed to decode frontmatter: %w", err)
	}
	rendered.Meta = meta

	return rendered, nil
}

// GenerateETag generates an ETag for the content.
func GenerateETag(content string) string {
	hash := sha256.New()
	hash.Write([]byte(content))
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// EstimateReadingTime estimates the reading time of the content.
func EstimateReadingTime(content string) string {
	const wordsPerMinute = 200

	words := len(strings.Fields(content))
	minutes := words / wordsPerMinute

	switch {
	case minutes < 1:
		return "< 1 min"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	default:
		return fmt.Sprintf("%d hr %d min", minutes/60, minutes%60)
	}
}
