package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/views"
)

type errorResponse struct {
	Error string `json:"error"`
}

// createFailedResponse is the body clients get when a post could not be created.
type createFailedResponse struct {
	Create string `json:"create"`
}

type redirectResponse struct {
	Redirect string         `json:"redirect"`
	Post     *blogdesk.Post `json:"post,omitempty"`
}

// submission is a mutation request body. Form posts and JSON bodies share it.
type submission struct {
	blogdesk.PostForm
	Action string `json:"action"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// readSubmission reads the post fields and action from a form or JSON body.
// Missing fields are empty strings.
func readSubmission(r *http.Request) (submission, error) {
	var sub submission
	if isJSONBody(r) {
		err := decodeJSON(r, &sub)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return sub, err
	}

	if err := r.ParseForm(); err != nil {
		return sub, err
	}
	sub.Slug = r.PostForm.Get("slug")
	sub.Title = r.PostForm.Get("title")
	sub.Markdown = r.PostForm.Get("markdown")
	sub.Action = r.PostForm.Get("action")
	return sub, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// mapError turns a store or mutation error into a status code and message.
func mapError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "unknown error"
	case errors.Is(err, blogdesk.ErrPostNotFound):
		return http.StatusNotFound, "Post not found"
	case errors.Is(err, blogdesk.ErrPostExists):
		return http.StatusConflict, "A post with that slug already exists"
	case errors.Is(err, blogdesk.ErrInvalidAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, blogdesk.ErrCreateFailed):
		return http.StatusInternalServerError, views.CreateFailedMessage
	case errors.Is(err, blogdesk.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "The post store is unavailable"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// render writes a full HTML page.
func render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	templ.Handler(views.Layout(title, body), templ.WithStatus(status)).ServeHTTP(w, r)
}

// fail writes err as JSON or as an error page, depending on what the client accepts.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log(r).Error("request failed", "error", err)
	}

	if wantsJSON(r) {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	render(w, r, status, views.Title(http.StatusText(status)), views.ErrorPage(status, msg))
}

// redirect sends a 303 to target. JSON clients also get the target and post in the body.
func redirect(w http.ResponseWriter, r *http.Request, target string, post *blogdesk.Post) {
	if wantsJSON(r) {
		w.Header().Set("Location", target)
		writeJSON(w, http.StatusSeeOther, redirectResponse{Redirect: target, Post: post})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
