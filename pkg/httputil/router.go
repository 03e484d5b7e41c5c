// Package httputil carries the HTTP plumbing shared by the dashboard API:
// a thin router over net/http with middleware chaining, response helpers,
// and the context keys middleware communicates through.
package httputil

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Middleware wraps an http.Handler to modify or enhance its behavior.
type Middleware func(http.Handler) http.Handler

// RouterOption configures a Router.
type RouterOption func(*Router)

// Router dispatches requests via net/http method patterns
// ("GET /api/series") and applies its middleware chain in registration
// order.
type Router struct {
	mux        *http.ServeMux
	server     *http.Server
	prefix     string
	middleware []Middleware
	mu         sync.RWMutex
}

// NewRouter creates a Router with the given options.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		server: &http.Server{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithServerOptions applies custom http.Server settings.
func WithServerOptions(opts ...func(*http.Server)) RouterOption {
	return func(r *Router) {
		for _, opt := range opts {
			opt(r.server)
		}
	}
}

// Use appends middleware to the chain. Middleware applies, in the order it
// was added, to routes registered afterwards.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// Group returns a sub-router with the given path prefix. It inherits a copy
// of the parent's middleware chain.
func (r *Router) Group(prefix string) *Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Router{
		mux:        r.mux,
		middleware: slices.Clone(r.middleware),
		server:     r.server,
		prefix:     r.prefix + prefix,
	}
}

// Handle registers a handler for a "METHOD /pattern" route, wrapped in the
// middleware registered so far. On a group the pattern is registered under
// the group prefix.
func (r *Router) Handle(methodPattern string, handler http.Handler) {
	parts := strings.SplitN(methodPattern, " ", 2)
	if len(parts) != 2 {
		panic(fmt.Sprintf("httputil: invalid method pattern %q", methodPattern))
	}
	method, pattern := parts[0], parts[1]

	r.mu.RLock()
	defer r.mu.RUnlock()

	final := handler
	for i := len(r.middleware) - 1; i >= 0; i-- {
		final = r.middleware[i](final)
	}
	r.mux.Handle(fmt.Sprintf("%s %s%s", method, r.prefix, pattern), final)
}

// HandleFunc is Handle for plain handler functions.
func (r *Router) HandleFunc(methodPattern string, handler http.HandlerFunc) {
	r.Handle(methodPattern, handler)
}

// ListenAndServe starts the server on addr.
func (r *Router) ListenAndServe(addr string) error {
	r.server.Addr = addr
	r.server.Handler = r.mux
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the underlying server.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// Handler exposes the mux for serving via a caller-owned http.Server or
// httptest.
func (r *Router) Handler() http.Handler {
	return r.mux
}
