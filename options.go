package gqlview

// options.go handles options that can be used to control the GraphQL server.
// These options are just passed on to the handler. (See internal/handler/options.go
// for details on how closures are used to handle options.)

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/internal/handler"
	"github.com/andrewwphillips/gqlview/settings"
	"github.com/andrewwphillips/gqlview/txn"
)

// FromSettings applies the settings (GraphiQL, pretty, batch, subscription path, header editor and atomic
// mutations).  The beginner is used for atomic mutations and may be nil.
func FromSettings(s *settings.Settings, beginner txn.Beginner) Option {
	return handler.FromSettings(s, beginner)
}

// GraphiQL controls whether browsers (requests that prefer HTML to JSON) get the GraphiQL console
func GraphiQL(on bool) Option { return handler.GraphiQL(on) }

// Pretty makes all responses indented JSON with sorted keys (clients can also ask with ?pretty=1)
func Pretty(on bool) Option { return handler.Pretty(on) }

// Batch turns on batch mode, where the request body is a list of requests and the response a list of results
func Batch(on bool) Option { return handler.Batch(on) }

// SubscriptionPath is the path GraphiQL connects to (with a websocket) for subscriptions
func SubscriptionPath(path string) Option { return handler.SubscriptionPath(path) }

// HeaderEditor enables the request headers editor of GraphiQL
func HeaderEditor(on bool) Option { return handler.HeaderEditor(on) }

// CSRFCookie sets the name of the CSRF cookie (default "csrftoken")
func CSRFCookie(name string) Option { return handler.CSRFCookie(name) }

// RootValue provides the root value (eg map[string]interface{} for graphql-go) of each request
func RootValue(f func(*http.Request) interface{}) Option { return handler.RootValue(f) }

// Context provides the context used when executing each request
func Context(f func(*http.Request) context.Context) Option { return handler.Context(f) }

// Middleware adds execution middleware - the first added is the outermost
func Middleware(middleware ...engine.Middleware) Option { return handler.Middleware(middleware...) }

// AtomicMutations runs every mutation in a transaction that is rolled back if there are errors
func AtomicMutations(beginner txn.Beginner) Option { return handler.AtomicMutations(beginner) }

// NoConcurrency controls whether concurrent execution of the queries (but not mutations) of a batch is permitted
func NoConcurrency(on bool) Option { return handler.NoConcurrency(on) }

// MaxBatchConcurrency limits how many requests of a batch are executed at the same time
func MaxBatchConcurrency(n int) Option { return handler.MaxBatchConcurrency(n) }

// Logger sets the zap logger (the default discards all logging)
func Logger(log *zap.Logger) Option { return handler.Logger(log) }

// Metrics registers prometheus metrics for requests and operations
func Metrics(registerer prometheus.Registerer) Option { return handler.Metrics(registerer) }

// InitialTimeout is how long a new websocket may wait before sending "connection_init" (else it is closed with 4408)
func InitialTimeout(timeout time.Duration) Option { return handler.InitialTimeout(timeout) }

// PingFrequency is how often websocket clients are sent "ping" (graphql-transport-ws) or "ka" (graphql-ws)
func PingFrequency(freq time.Duration) Option { return handler.PingFrequency(freq) }

// PongTimeout is how long to wait for "pong" after a "ping" before dropping the websocket
func PongTimeout(timeout time.Duration) Option { return handler.PongTimeout(timeout) }

// MaxBodySize is the largest request body accepted (default 2.5 MiB), negative for no limit
func MaxBodySize(n int64) Option { return handler.MaxBodySize(n) }
