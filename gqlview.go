package gqlview

// gqlview.go provides functions for creating the GraphQL HTTP handler

import (
	"context"
	"net/http"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/internal/handler"
)

type (
	// Handler is the GraphQL HTTP handler
	Handler = handler.Handler

	// Option configures a Handler (see options.go)
	Option = func(*handler.Handler)
)

var (
	ErrNoExecutor    = handler.ErrNoExecutor
	ErrGraphiQLBatch = handler.ErrGraphiQLBatch
)

// New creates an HTTP handler that executes GraphQL requests using exec.  It returns an error if exec is nil
// or the options are inconsistent (eg GraphiQL and batch mode together).
func New(exec engine.Executor, options ...Option) (*Handler, error) {
	return handler.Build(exec, options...)
}

// MustNew is like New but panics on error
func MustNew(exec engine.Executor, options ...Option) *Handler {
	return handler.New(exec, options...)
}

// RequestFromContext returns the HTTP request being handled, so resolvers can use headers, cookies etc.
// It returns nil if ctx is not from a GraphQL request.
func RequestFromContext(ctx context.Context) *http.Request {
	return handler.RequestFromContext(ctx)
}
