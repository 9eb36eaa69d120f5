// Package httpapi is the wire adapter: it decodes the HTTP envelope
// described by the external interfaces (path, method, body, Authorization
// header) into an action.Request, dispatches it, and encodes the result
// back to JSON. This is the only package that touches net/http — package
// action has no HTTP dependency of its own.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/syssam/keel"
	"github.com/syssam/keel/action"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// TokenVerifier parses a bearer token into the model it claims and the
// primary-key value to look the identity row up by. Implemented by
// package identity; httpapi depends on it only through this interface so
// identity stays downstream of httpapi in the package dependency graph.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (model *schema.Model, idValue value.Value, err error)
}

// Server wires a chi router around a Dispatcher. log defaults to
// slog.Default() when nil.
type Server struct {
	graph      *schema.Graph
	conn       connection.Connection
	dispatcher *action.Dispatcher
	verifier   TokenVerifier
	log        *slog.Logger
	prefix     string

	router chi.Router
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the Server's *slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithPrefix sets the path prefix routes are mounted under (default "").
func WithPrefix(prefix string) Option {
	return func(s *Server) { s.prefix = prefix }
}

// New builds a Server dispatching through dispatcher, routing
// `<prefix>/<modelURLSegment>/action/<handlerName>`, and verifying bearer
// tokens with verifier (nil disables Authorization entirely: every
// request is treated as anonymous). conn is used directly — outside the
// dispatcher — to load the identity row a verified token's claim names.
func New(graph *schema.Graph, conn connection.Connection, dispatcher *action.Dispatcher, verifier TokenVerifier, opts ...Option) *Server {
	s := &Server{
		graph:      graph,
		conn:       conn,
		dispatcher: dispatcher,
		verifier:   verifier,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.NotFound(s.handleDestinationNotFound)
	r.MethodNotAllowed(s.handleDestinationNotFound)
	r.Route(s.prefix+"/{model}/action/{handler}", func(r chi.Router) {
		r.Post("/", s.handleAction)
		r.Options("/", s.handleOptions)
		r.NotFound(s.handleDestinationNotFound)
		r.MethodNotAllowed(s.handleDestinationNotFound)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// handleOptions satisfies the wire protocol's "OPTIONS returns 200 {}".
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

// handleDestinationNotFound answers an unrouted path or a method other
// than POST/OPTIONS with the canonical destination_not_found envelope,
// per the wire protocol's "any other method yields destination_not_found".
func (s *Server) handleDestinationNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, keel.New(keel.KindDestinationNotFound, "no such destination: %s %s", r.Method, r.URL.Path))
}
