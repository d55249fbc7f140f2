package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/views"
)

type listResponse struct {
	Posts       []*blogdesk.Post `json:"posts"`
	Query       string           `json:"query,omitempty"`
	CurrentPage int              `json:"page"`
	TotalPages  int              `json:"totalPages"`
	TotalPosts  int              `json:"totalPosts"`
}

type postResponse struct {
	Post        *blogdesk.Post `json:"post"`
	HTML        string         `json:"html"`
	ReadingTime string         `json:"readingTime"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, blogdesk.PostsPath, http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.List(r.Context()); err != nil {
		s.log(r).Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	var posts []*blogdesk.Post
	if searcher, ok := s.store.(blogdesk.PostSearcher); ok && query != "" {
		posts, err = searcher.Search(r.Context(), query)
	} else {
		posts, err = s.store.List(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	paginator := blogdesk.NewPaginator(posts, page, s.pageSize)
	paginator.Query = query

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, listResponse{
			Posts:       paginator.Posts,
			Query:       query,
			CurrentPage: paginator.CurrentPage,
			TotalPages:  paginator.TotalPages,
			TotalPosts:  paginator.TotalPosts,
		})
		return
	}
	render(w, r, http.StatusOK, views.Title("Posts"), views.PostList(paginator))
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// HTML and JSON share the URL, so each form gets its own tag.
	variant := "html"
	if wantsJSON(r) {
		variant = "json"
	}
	etag := fmt.Sprintf("%q", post.ETag(variant))
	w.Header().Set("Vary", "Accept")
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	rendered, err := s.renderer.Render(post.Markdown)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, postResponse{Post: post, HTML: rendered.HTML, ReadingTime: rendered.ReadingTime})
		return
	}
	render(w, r, http.StatusOK, views.Title(post.Title), views.PostPage(post, rendered))
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, listResponse{Posts: posts, CurrentPage: 1, TotalPages: 1, TotalPosts: len(posts)})
		return
	}
	render(w, r, http.StatusOK, views.Title("Admin"), views.AdminLayout(posts, views.AdminIndex()))
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, "New Post",
		views.NewPostForm(blogdesk.PostForm{}, blogdesk.Validation{}, ""))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	outcome, err := s.mutator.CreatePost(r.Context(), sub.PostForm)
	switch {
	case err != nil:
		s.log(r).Error("create failed", "slug", sub.Slug, "error", err)
		if wantsJSON(r) {
			writeJSON(w, http.StatusInternalServerError, createFailedResponse{Create: views.CreateFailedMessage})
			return
		}
		s.renderAdmin(w, r, http.StatusInternalServerError, "New Post",
			views.NewPostForm(sub.PostForm, blogdesk.Validation{}, views.CreateFailedMessage))

	case outcome.Validation.HasErrors:
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, outcome.Validation)
			return
		}
		s.renderAdmin(w, r, http.StatusOK, "New Post",
			views.NewPostForm(sub.PostForm, outcome.Validation, ""))

	default:
		redirect(w, r, outcome.Redirect, outcome.Post)
	}
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	post, err := s.store.Get(r.Context(), slug)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, post)
		return
	}
	s.renderAdmin(w, r, http.StatusOK, "Edit "+post.Title,
		views.EditPostForm(slug, post.Form(), blogdesk.Validation{}))
}

// handleAction dispatches the edit page's forms on their action field.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	sub, err := readSubmission(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	switch sub.Action {
	case string(blogdesk.OpDelete):
		outcome, err := s.mutator.DeletePost(r.Context(), slug)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		redirect(w, r, outcome.Redirect, nil)

	case string(blogdesk.OpUpdate):
		outcome, err := s.mutator.UpdatePost(r.Context(), slug, sub.PostForm)
		switch {
		case err != nil:
			s.fail(w, r, err)
		case outcome.Validation.HasErrors:
			if wantsJSON(r) {
				writeJSON(w, http.StatusOK, outcome.Validation)
				return
			}
			s.renderAdmin(w, r, http.StatusOK, "Edit "+slug,
				views.EditPostForm(slug, sub.PostForm, outcome.Validation))
		default:
			redirect(w, r, outcome.Redirect, outcome.Post)
		}

	default:
		s.fail(w, r, fmt.Errorf("%w: %q", blogdesk.ErrInvalidAction, sub.Action))
	}
}

// renderAdmin renders content next to the admin post list. A failing list degrades to an empty one.
func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, status int, title string, content templ.Component) {
	posts, err := s.store.List(r.Context())
	if err != nil {
		s.log(r).Warn("admin list unavailable", "error", err)
		posts = nil
	}
	render(w, r, status, views.Title(title), views.AdminLayout(posts, content))
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.log(r).Warn("unreadable request body", "error", err)
	if wantsJSON(r) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	render(w, r, http.StatusBadRequest, views.Title("Bad Request"),
		views.ErrorPage(http.StatusBadRequest, "Malformed request body"))
}
