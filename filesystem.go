package blogdesk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// FrontmatterFormat is the encoding of the metadata block at the top of a post file.
type FrontmatterFormat string

const (
	FrontmatterYAML FrontmatterFormat = "yaml"
	FrontmatterTOML FrontmatterFormat = "toml"
)

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// IsValid reports whether the format is supported.
func (f FrontmatterFormat) IsValid() bool {
	return f == FrontmatterYAML || f == FrontmatterTOML
}

// PostFrontmatter is the metadata stored at the top of a post file.
type PostFrontmatter struct {
	Title string `yaml:"title" toml:"title"`
	Slug  string `yaml:"slug,omitempty" toml:"slug,omitempty"`
}

// WalkEntry is one post file found by Walk. Err is set, and Post nil, when the file could not be
// parsed; it wraps ErrInvalidPostFile.
type WalkEntry struct {
	Path string
	Post *Post
	Err  error
}

// FileSystem handles file system operations for post files
type FileSystem interface {
	Walk(ctx context.Context) (<-chan WalkEntry, <-chan error)
	Read(ctx context.Context, slug string) (*Post, error)
	Write(ctx context.Context, post *Post) error
	Delete(ctx context.Context, slug string) error
}

// LocalFileSystem implements FileSystem for a directory of markdown files on the local disk.
type LocalFileSystem struct {
	rootDir string
	format  FrontmatterFormat
}

func NewLocalFileSystem(rootDir string, format FrontmatterFormat) *LocalFileSystem {
	if !format.IsValid() {
		format = FrontmatterYAML
	}
	return &LocalFileSystem{rootDir: rootDir, format: format}
}

// Root returns the content directory.
func (lfs *LocalFileSystem) Root() string {
	return lfs.rootDir
}

// Walk sends every markdown file under the root. Files that fail to parse are sent with Err set and
// the walk goes on. The error channel receives at most one error, for I/O failures that end the walk.
func (lfs *LocalFileSystem) Walk(ctx context.Context) (<-chan WalkEntry, <-chan error) {
	posts := make(chan WalkEntry)
	errs := make(chan error, 1)

	go func() {
		defer close(posts)
		defer close(errs)

		err := filepath.WalkDir(lfs.rootDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !IsPostFile(path) {
				return nil
			}

			post, err := lfs.readFile(path)
			if err != nil && !errors.Is(err, ErrInvalidPostFile) {
				return err
			}

			select {
			case posts <- WalkEntry{Path: path, Post: post, Err: err}:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})

		if err != nil {
			errs <- err
		}
	}()

	return posts, errs
}

// Read loads <root>/<slug>.md. Returns ErrPostNotFound if the file does not exist.
func (lfs *LocalFileSystem) Read(_ context.Context, slug string) (*Post, error) {
	post, err := lfs.readFile(lfs.buildPath(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	return post, err
}

// ReadFile loads a single post file from anywhere under the root.
func (lfs *LocalFileSystem) ReadFile(path string) (*Post, error) {
	return lfs.readFile(path)
}

func (lfs *LocalFileSystem) readFile(path string) (*Post, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	meta, body, err := ParseFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidPostFile, path, err)
	}

	slug := meta.Slug
	if slug == "" {
		slug = SlugifyPath(lfs.rootDir, path).Slug
	}

	return &Post{
		Slug:     slug,
		Title:    meta.Title,
		Markdown: body,
		Created:  info.ModTime().UTC(),
		Updated:  info.ModTime().UTC(),
	}, nil
}

// Write saves the post to <root>/<slug>.md, overwriting any existing file.
func (lfs *LocalFileSystem) Write(_ context.Context, post *Post) error {
	path := lfs.buildPath(post.Slug)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := FormatPostFile(post, lfs.format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (lfs *LocalFileSystem) Delete(_ context.Context, slug string) error {
	err := os.Remove(lfs.buildPath(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	return err
}

func (lfs *LocalFileSystem) buildPath(slug string) string {
	return filepath.Join(lfs.rootDir, slug+".md")
}

// IsPostFile reports whether path names a markdown post file.
func IsPostFile(path string) bool {
	return filepath.Ext(path) == ".md"
}

// ParseFrontmatter splits a post file into its metadata and markdown body. Files without a
// frontmatter block return an empty PostFrontmatter and the whole content as the body.
func ParseFrontmatter(content []byte) (PostFrontmatter, string, error) {
	var meta PostFrontmatter

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if delim := openingDelimiter(text); delim != "" && !hasClosingDelimiter(text, delim) {
		return meta, "", fmt.Errorf("unterminated frontmatter")
	}

	body, err := frontmatter.Parse(strings.NewReader(text), &meta, fileFormats...)
	if err != nil {
		return meta, "", fmt.Errorf("failed to unmarshal frontmatter: %w", err)
	}

	return meta, strings.TrimLeft(string(body), "\n"), nil
}

var fileFormats = []*frontmatter.Format{
	frontmatter.NewFormat(yamlDelimiter, yamlDelimiter, yaml.Unmarshal),
	frontmatter.NewFormat(tomlDelimiter, tomlDelimiter, toml.Unmarshal),
}

func openingDelimiter(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	switch strings.TrimSpace(first) {
	case yamlDelimiter:
		return yamlDelimiter
	case tomlDelimiter:
		return tomlDelimiter
	}
	return ""
}

func hasClosingDelimiter(text, delim string) bool {
	lines := strings.Split(text, "\n")
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == delim {
			return true
		}
	}
	return false
}

// FormatPostFile renders a post as a markdown file with a frontmatter block.
func FormatPostFile(post *Post, format FrontmatterFormat) ([]byte, error) {
	meta := PostFrontmatter{Title: post.Title, Slug: post.Slug}

	var buf bytes.Buffer
	switch format {
	case FrontmatterYAML:
		yamlData, err := yaml.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML frontmatter: %w", err)
		}
		fmt.Fprintf(&buf, "%s\n%s%s\n\n", yamlDelimiter, yamlData, yamlDelimiter)
	case FrontmatterTOML:
		var block strings.Builder
		if err := toml.NewEncoder(&block).Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to marshal TOML frontmatter: %w", err)
		}
		fmt.Fprintf(&buf, "%s\n%s%s\n\n", tomlDelimiter, block.String(), tomlDelimiter)
	default:
		return nil, fmt.Errorf("unsupported frontmatter format: %s", format)
	}

	buf.WriteString(post.Markdown)
	return buf.Bytes(), nil
}
