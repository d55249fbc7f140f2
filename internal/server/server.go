// Package server exposes the blog over HTTP: the public post list and pages, the admin forms
// that drive the Mutator, a websocket feed of post changes and a health check.
package server

import (
	"log/slog"
	"net/http"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/internal/logging"
)

// Server wires a PostStore to the HTTP routes.
type Server struct {
	store    blogdesk.PostStore
	mutator  *blogdesk.Mutator
	events   *blogdesk.Broadcaster
	renderer *blogdesk.MarkdownRenderer
	logger   *slog.Logger
	pageSize int
	inject   blogdesk.FailureInjector
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPageSize sets how many posts the public list shows per page.
func WithPageSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithBroadcaster shares a broadcaster with other producers, such as the content watcher.
func WithBroadcaster(b *blogdesk.Broadcaster) Option {
	return func(s *Server) {
		if b != nil {
			s.events = b
		}
	}
}

// WithFailureInjector is passed through to the Mutator.
func WithFailureInjector(fn blogdesk.FailureInjector) Option {
	return func(s *Server) {
		s.inject = fn
	}
}

// New builds a Server over store.
func New(store blogdesk.PostStore, opts ...Option) *Server {
	s := &Server{
		store:    store,
		renderer: blogdesk.NewMarkdownRenderer(),
		logger:   logging.Discard(),
		pageSize: 10,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.events == nil {
		s.events = blogdesk.NewBroadcaster(16)
	}

	s.mutator = blogdesk.NewMutator(store,
		blogdesk.WithLogger(s.logger.With(slog.String("component", "mutator"))),
		blogdesk.WithBroadcaster(s.events),
		blogdesk.WithFailureInjector(s.inject),
	)
	return s
}

// Events returns the broadcaster that carries post changes.
func (s *Server) Events() *blogdesk.Broadcaster {
	return s.events
}

// Register adds the routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET "+blogdesk.PostsPath, s.handleList)
	mux.HandleFunc("GET "+blogdesk.PostsPath+"/{slug}", s.handlePost)

	mux.HandleFunc("GET "+blogdesk.AdminPath, s.handleAdmin)
	mux.HandleFunc("GET "+blogdesk.AdminPath+"/new", s.handleNewForm)
	mux.HandleFunc("POST "+blogdesk.AdminPath+"/new", s.handleCreate)
	mux.HandleFunc("GET "+blogdesk.AdminPath+"/events", s.handleEvents)
	mux.HandleFunc("GET "+blogdesk.AdminPath+"/{slug}", s.handleEditForm)
	mux.HandleFunc("POST "+blogdesk.AdminPath+"/{slug}", s.handleAction)
}

// Handler returns the routes wrapped in the request ID, logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return chain(mux,
		requestID(s.logger),
		requestLogger,
		recoverer,
	)
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), s.logger)
}
