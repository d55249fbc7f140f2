// Package views renders blogdesk pages from the html/template files in templates/ and exposes
// them as templ components.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/hypergopher/blogdesk"
)

// CreateFailedMessage is shown when the store or the failure hook rejects a new post.
const CreateFailedMessage = "Sorry, we couldn't create the post"

//go:embed templates/*.html
var templateFiles embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"postsPath":     func() string { return blogdesk.PostsPath },
	"adminPath":     func() string { return blogdesk.AdminPath },
	"postPath":      blogdesk.PostPath,
	"adminPostPath": blogdesk.AdminPostPath,
	"pageURL":       pageURL,
}).ParseFS(templateFiles, "templates/*.html"))

func page(name string, data any) templ.Component {
	return templ.FromGoHTML(pages.Lookup(name), data)
}

// nest renders inner first so a template can place it as trusted HTML.
func nest(inner templ.Component, outer func(body template.HTML) templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := templ.ToGoHTML(ctx, inner)
		if err != nil {
			return err
		}
		return outer(body).Render(ctx, w)
	})
}

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return nest(body, func(html template.HTML) templ.Component {
		return page("layout", struct {
			Title string
			Body  template.HTML
		}{title, html})
	})
}

// PostList is the public list of posts with search and pagination.
func PostList(paginator blogdesk.Paginator) templ.Component {
	return page("post_list", paginator)
}

func pageURL(query string, page int) string {
	u := blogdesk.PostsPath + "?page=" + strconv.Itoa(page)
	if query != "" {
		u += "&q=" + url.QueryEscape(query)
	}
	return u
}

// PostPage shows one rendered post. The rendered HTML comes from the markdown renderer, which
// drops raw HTML, and is inserted unescaped.
func PostPage(post *blogdesk.Post, rendered blogdesk.Rendered) templ.Component {
	return page("post_page", struct {
		Post        *blogdesk.Post
		ReadingTime string
		Body        template.HTML
	}{post, rendered.ReadingTime, template.HTML(rendered.HTML)})
}

// AdminLayout lists every post next to the admin content.
// The page reloads when another tab or the content watcher changes a post.
func AdminLayout(posts []*blogdesk.Post, content templ.Component) templ.Component {
	return nest(content, func(html template.HTML) templ.Component {
		return page("admin_layout", struct {
			Posts   []*blogdesk.Post
			Content template.HTML
		}{posts, html})
	})
}

// AdminIndex is the admin landing content.
func AdminIndex() templ.Component {
	return page("admin_index", nil)
}

type fields struct {
	Title, Slug, Markdown                string
	TitleError, SlugError, MarkdownError string
}

func postFields(form blogdesk.PostForm, validation blogdesk.Validation) fields {
	msg := func(m *string) string {
		if m == nil {
			return ""
		}
		return *m
	}
	return fields{
		Title:         form.Title,
		Slug:          form.Slug,
		Markdown:      form.Markdown,
		TitleError:    msg(validation.Errors.Title),
		SlugError:     msg(validation.Errors.Slug),
		MarkdownError: msg(validation.Errors.Markdown),
	}
}

// NewPostForm renders the create form. createErr is shown above the form when set.
func NewPostForm(form blogdesk.PostForm, validation blogdesk.Validation, createErr string) templ.Component {
	var suggested string
	if form.Slug == "" && form.Title != "" {
		suggested = blogdesk.SuggestSlug(form.Title)
	}
	return page("new_post", struct {
		Fields        fields
		CreateError   string
		SuggestedSlug string
	}{postFields(form, validation), createErr, suggested})
}

// EditPostForm renders the update form for the post stored under originalSlug, plus a delete form.
func EditPostForm(originalSlug string, form blogdesk.PostForm, validation blogdesk.Validation) templ.Component {
	return page("edit_post", struct {
		OriginalSlug string
		Fields       fields
	}{originalSlug, postFields(form, validation)})
}

// ErrorPage renders a status page.
func ErrorPage(status int, message string) templ.Component {
	return page("error_page", struct {
		Status  int
		Message string
	}{status, message})
}

// Title returns the document title for a page heading.
func Title(parts ...string) string {
	return fmt.Sprintf("%s | Blog", strings.Join(parts, " · "))
}
