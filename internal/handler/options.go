package handler

// options.go handles setting of handler options

// The use of closures for options makes it simple for the caller to add any desired options, but the mechanism
// (which they need not understand) is not simple: The handler.New() function takes as its last (variadic) parameter
// a slice of closures each with the signature func(*Handler).  The option functions below (Pretty, etc) return
// such a closure which captures any options (parameters passed to the option function) so that the handler can be
// modified when the closure is run.  So for example in this call:
//
//   handler.New(executor, handler.Pretty(true))
//
// handler.Pretty() is called and the generated closure is returned then passed as the last parameter to
// handler.New().  The SetOptions() method is called within handler.New() which executes all the options
// closures which in the above case will call the closure returned from handler.Pretty() which sets the
// pretty field of the handler to true.
//
// A pitfall is that if the same option function is used more than once then only the last use has any effect.
// (The exception is Middleware which appends.)

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/settings"
	"github.com/andrewwphillips/gqlview/txn"
)

const (
	defaultInitialTimeout = 10 * time.Second // how long to wait for connection_init after the WS is opened
	defaultPingFrequency  = 20 * time.Second // how often to send a ping (ka in old protocol) message to the client
	defaultPongTimeout    = 5 * time.Second  // how long to wait for a pong after sending a ping

	defaultCSRFCookie  = "csrftoken"
	defaultMaxBodySize = 2621440 // 2.5 MiB
)

// SetOptions takes a slice of handler options (closures) and executes them
func (h *Handler) SetOptions(options ...func(*Handler)) {
	for _, option := range options {
		option(h)
	}

	// Set any options that still have their unset (zero) value
	if h.initialTimeout == 0 {
		h.initialTimeout = defaultInitialTimeout
	}
	if h.pingFrequency == 0 {
		h.pingFrequency = defaultPingFrequency
	}
	if h.pongTimeout == 0 {
		h.pongTimeout = defaultPongTimeout
	}
	if h.csrfCookie == "" {
		h.csrfCookie = defaultCSRFCookie
	}
	if h.maxBodySize == 0 {
		h.maxBodySize = defaultMaxBodySize
	}
	if h.maxBatchConcurrency <= 0 {
		h.maxBatchConcurrency = runtime.GOMAXPROCS(0)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.registerer != nil && h.metrics == nil {
		h.metrics = newMetrics(h.registerer)
	}
}

// FromSettings applies the project settings: GraphiQL, pretty, batch, subscription path, header editor
// and (if beginner is not nil and atomic mutations are enabled) atomic mutations.
// Options after this one override the settings.
func FromSettings(s *settings.Settings, beginner txn.Beginner) func(*Handler) {
	return func(h *Handler) {
		h.graphiql = s.GraphiQL
		h.pretty = s.Pretty
		h.batch = s.Batch
		h.subscriptionPath = s.SubscriptionPath
		h.headerEditor = s.GraphiQLHeaderEditorEnabled
		if beginner != nil && s.AtomicMutationsEnabled() {
			h.atomic = beginner
		}
	}
}

// GraphiQL turns on serving the GraphiQL console to browsers (requests that prefer HTML to JSON)
func GraphiQL(on bool) func(*Handler) {
	return func(h *Handler) {
		h.graphiql = on
	}
}

// Pretty makes all JSON responses indented with sorted keys (otherwise only when ?pretty is in the URL)
func Pretty(on bool) func(*Handler) {
	return func(h *Handler) {
		h.pretty = on
	}
}

// Batch turns on batch mode where the request body must be a JSON list of requests and the response is a list
func Batch(on bool) func(*Handler) {
	return func(h *Handler) {
		h.batch = on
	}
}

// SubscriptionPath is the URL (path) GraphiQL uses for subscriptions over a websocket
func SubscriptionPath(path string) func(*Handler) {
	return func(h *Handler) {
		h.subscriptionPath = path
	}
}

// HeaderEditor enables the GraphiQL headers editor tab
func HeaderEditor(on bool) func(*Handler) {
	return func(h *Handler) {
		h.headerEditor = on
	}
}

// CSRFCookie sets the name of the CSRF cookie that is always set on responses (default "csrftoken")
func CSRFCookie(name string) func(*Handler) {
	return func(h *Handler) {
		h.csrfCookie = name
	}
}

// RootValue provides the root value passed to the engine for each request
func RootValue(f func(*http.Request) interface{}) func(*Handler) {
	return func(h *Handler) {
		h.rootValue = f
	}
}

// Context provides the context used to execute each request.  The default is the request's context.
// Either way the request is added and can be retrieved with RequestFromContext.
func Context(f func(*http.Request) context.Context) func(*Handler) {
	return func(h *Handler) {
		h.contextFunc = f
	}
}

// Middleware adds execution middleware.  The first middleware added is the outermost.
func Middleware(middleware ...engine.Middleware) func(*Handler) {
	return func(h *Handler) {
		h.middleware = append(h.middleware, middleware...)
	}
}

// AtomicMutations runs each mutation in a transaction started with beginner (nil turns it off)
func AtomicMutations(beginner txn.Beginner) func(*Handler) {
	return func(h *Handler) {
		h.atomic = beginner
	}
}

// NoConcurrency turns off concurrent execution of the queries in a batch
func NoConcurrency(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noConcurrency = on
	}
}

// MaxBatchConcurrency limits how many queries of a batch are run at once (default GOMAXPROCS)
func MaxBatchConcurrency(n int) func(*Handler) {
	return func(h *Handler) {
		h.maxBatchConcurrency = n
	}
}

// Logger sets the logger (default is no logging)
func Logger(log *zap.Logger) func(*Handler) {
	return func(h *Handler) {
		h.log = log
	}
}

// Metrics registers request metrics with the prometheus registerer
func Metrics(registerer prometheus.Registerer) func(*Handler) {
	return func(h *Handler) {
		h.registerer = registerer
	}
}

// InitialTimeout sets the length time to wait from when the websocket is opened until the
// "connection_init" message is received. If the message is not received from the client
// within the time limit then an error message is returned to the client and the WS is closed.
func InitialTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.initialTimeout = timeout // timeout value is "captured" and returned as part of the func
	}
}

// PingFrequency says how often to send a "ping" message (if the client connects with new
// protocol) or a "ka" (keep alive) message (old protocol)
func PingFrequency(freq time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pingFrequency = freq
	}
}

// PongTimeout set the length time to wait for a "pong" message from the client after
// a "ping" message is sent. If the message is not received from the client
// within the time limit then the WS is closed.
func PongTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pongTimeout = timeout
	}
}

// MaxBodySize limits the size of request bodies (after any gzip decompression).  Larger requests get a
// 413 response.  A negative size means no limit.
func MaxBodySize(n int64) func(*Handler) {
	return func(h *Handler) {
		h.maxBodySize = n
	}
}
