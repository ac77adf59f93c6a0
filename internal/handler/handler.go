// Package handler implements an HTTP handler (a "view") that accepts GraphQL requests over GET and POST,
// hands them to a GraphQL engine (see package engine) and writes the result as JSON.  It can also serve
// the GraphiQL console to browsers and run subscriptions over a websocket.
package handler

// handler.go implements the handler and it's ServeHTTP method

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/txn"
)

const requestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("github.com/andrewwphillips/gqlview")

type (
	// Handler stores the invariants (engine and options) used for all GraphQL requests
	Handler struct {
		exec       engine.Executor
		execute    engine.ExecuteFunc // exec wrapped in the middleware
		middleware []engine.Middleware

		graphiql, pretty, batch bool
		subscriptionPath        string
		headerEditor            bool
		csrfCookie              string
		maxBodySize             int64

		rootValue   func(*http.Request) interface{}
		contextFunc func(*http.Request) context.Context

		atomic              txn.Beginner // non-nil if mutations are run in a transaction
		noConcurrency       bool
		maxBatchConcurrency int

		initialTimeout, pingFrequency, pongTimeout time.Duration

		log        *zap.Logger
		registerer prometheus.Registerer
		metrics    *metrics
	}

	requestKey struct{}
)

var (
	ErrNoExecutor    = errors.New("a schema executor is required")
	ErrGraphiQLBatch = errors.New("use either graphiql or batch processing")
)

// New returns an HTTP handler that executes GraphQL requests using exec, plus any options (see options.go).
// It panics if exec is nil or the options are inconsistent.
func New(exec engine.Executor, options ...func(*Handler)) *Handler {
	h, err := Build(exec, options...)
	if err != nil {
		panic("gqlview.handler.New - " + err.Error())
	}
	return h
}

// Build is like New but returns an error instead of panicking
func Build(exec engine.Executor, options ...func(*Handler)) (*Handler, error) {
	if exec == nil {
		return nil, ErrNoExecutor
	}
	h := &Handler{exec: exec}
	h.SetOptions(options...)
	if h.graphiql && h.batch {
		return nil, ErrGraphiQLBatch
	}
	h.execute = engine.Chain(exec, h.middleware...)
	return h, nil
}

// RequestFromContext returns the HTTP request being handled.  Resolvers can use it to get at headers, cookies etc.
func RequestFromContext(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey{}).(*http.Request)
	return r
}

// ServeHTTP receives a GraphQL query as an HTTP request, executes the query (or mutation)
// and generates an HTTP response or error message
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := h.log.With(zap.String("request_id", requestID))

	ctx, span := tracer.Start(r.Context(), "GraphQL "+r.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.request_id", requestID)))
	defer span.End()
	r = r.WithContext(ctx)

	h.ensureCSRFCookie(w, r)
	w.Header().Set(requestIDHeader, requestID)

	if websocket.IsWebSocketUpgrade(r) {
		h.serveWS(w, r, log)
		return
	}

	status := h.serve(w, r, log)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	h.metrics.observeRequest(r.Method, status, time.Since(start))
	log.Debug("graphql request served",
		zap.String("method", r.Method),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))
}

// serve handles a normal (non-websocket) request returning the HTTP status code written
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, log *zap.Logger) int {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return h.writeError(w, r, log, newHTTPError(http.StatusMethodNotAllowed,
			"GraphQL only supports GET and POST requests.", http.MethodGet, http.MethodPost))
	}

	data, batch, err := h.parseBody(r)
	if err != nil {
		return h.writeError(w, r, log, err)
	}

	if h.graphiql && h.canDisplayGraphiQL(r, data) {
		return h.renderGraphiQL(w, r, log)
	}

	var body []byte
	var status int
	if h.batch {
		if batch == nil {
			batch = []requestData{data} // not a JSON body (eg a form) so treat as a batch of one
		}
		body, status, err = h.getBatchResponse(r, batch, log)
	} else {
		body, status, err = h.getResponse(r, data, log)
	}
	if err != nil {
		return h.writeError(w, r, log, err)
	}

	h.write(w, r, log, status, "application/json", body)
	return status
}

// requestContext returns the context passed to the engine for a request (which may be a websocket request)
func (h *Handler) requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if h.contextFunc != nil {
		if c := h.contextFunc(r); c != nil {
			ctx = c
		}
	}
	return context.WithValue(ctx, requestKey{}, r)
}

func (h *Handler) getRootValue(r *http.Request) interface{} {
	if h.rootValue == nil {
		return nil
	}
	return h.rootValue(r)
}
