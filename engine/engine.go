// Package engine is the boundary between the HTTP view and the library that
// actually parses, validates and executes GraphQL.  The view only ever talks to
// an Executor (and, for websocket subscriptions, a Subscriber) so any GraphQL
// library can be plugged in with a small adapter - see the graphqlgo and
// gophers sub-packages.
package engine

// engine.go declares the executor interfaces and the execution middleware chain

import (
	"context"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	// Request is a single GraphQL operation request extracted from an HTTP request (or websocket message)
	Request struct {
		Query         string
		OperationName string
		Variables     map[string]interface{}
		RootValue     interface{} // passed through to the engine as its root object (if it supports one)
	}

	// Response is the result of executing a Request.  Data is whatever the engine produces that encodes
	// as JSON (eg a map or a json.RawMessage).  Errors always use the gqlparser error shape.
	Response struct {
		Data   interface{}   `json:"data"`
		Errors gqlerror.List `json:"errors,omitempty"`
	}

	// Executor runs a query or mutation to completion
	Executor interface {
		Execute(ctx context.Context, req *Request) *Response
	}

	// Subscriber is implemented by executors that can also run subscriptions.  The returned channel is
	// closed by the engine when the subscription ends or ctx is cancelled.
	Subscriber interface {
		Subscribe(ctx context.Context, req *Request) (<-chan *Response, error)
	}

	// ExecuteFunc adapts a func to the Executor interface
	ExecuteFunc func(ctx context.Context, req *Request) *Response

	// Middleware wraps the execution of each operation, eg for logging, auth checks or timing
	Middleware func(next ExecuteFunc) ExecuteFunc
)

// Execute calls f(ctx, req)
func (f ExecuteFunc) Execute(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Chain returns an ExecuteFunc that runs exec wrapped by the middleware.  The first middleware is the
// outermost, ie it sees the request first and the response last.
func Chain(exec Executor, middleware ...Middleware) ExecuteFunc {
	f := exec.Execute
	for i := len(middleware) - 1; i >= 0; i-- {
		f = middleware[i](f)
	}
	return f
}

// ErrorResponse returns a response with no data and a single error
func ErrorResponse(err error) *Response {
	return &Response{Errors: gqlerror.List{AsError(err)}}
}
