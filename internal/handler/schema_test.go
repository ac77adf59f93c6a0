package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/andrewwphillips/gqlview/engine/graphqlgo"
	"github.com/andrewwphillips/gqlview/internal/handler"
	"github.com/andrewwphillips/gqlview/txn"
)

const resolverError = "resolver func error"

// stored is set by the "store" mutation so tests can check whether it ran
var stored atomic.Int64

// testSchema has a few queries, mutations and subscriptions used by all the handler tests
var testSchema = func() graphql.Schema {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return "world", nil },
			},
			"dbl": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Args: graphql.FieldConfigArgument{"v": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return 2 * p.Args["v"].(int), nil
				},
			},
			"fail": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return nil, errors.New(resolverError)
				},
			},
			"header": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r := handler.RequestFromContext(p.Context)
					if r == nil {
						return nil, errors.New("no request in context")
					}
					return r.Header.Get(p.Args["name"].(string)), nil
				},
			},
			"root": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(map[string]interface{}); ok {
						return m["root"], nil
					}
					return nil, nil
				},
			},
			"ctxValue": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Context.Value(contextKey{}), nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"store": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Args: graphql.FieldConfigArgument{"p": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v := p.Args["p"].(int)
					stored.Store(int64(v))
					return 2 * v, nil
				},
			},
			"storeFail": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return nil, errors.New(resolverError)
				},
			},
			"markErrors": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					txn.MarkMutationErrors(p.Context)
					return false, nil
				},
			},
		},
	})

	subscription := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			// message sends "hello" until cancelled, pausing for the delay (ms) after each
			"message": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"delay": &graphql.ArgumentConfig{
					Type: graphql.Int, DefaultValue: 500,
				}},
				Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
					delay := time.Duration(p.Args["delay"].(int)) * time.Millisecond
					ch := make(chan interface{})
					go func() {
						defer close(ch)
						for {
							select {
							case <-p.Context.Done():
								return
							case ch <- "hello":
							}
							select {
							case <-p.Context.Done():
								return
							case <-time.After(delay):
							}
						}
					}()
					return ch, nil
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source, nil },
			},
			// count sends 1 to "to" then ends
			"count": &graphql.Field{
				Type: graphql.Int,
				Args: graphql.FieldConfigArgument{"to": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
					to := p.Args["to"].(int)
					ch := make(chan interface{})
					go func() {
						defer close(ch)
						for i := 1; i <= to; i++ {
							select {
							case <-p.Context.Done():
								return
							case ch <- i:
							}
						}
					}()
					return ch, nil
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source, nil },
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation, Subscription: subscription})
	if err != nil {
		panic(err)
	}
	return schema
}()

// newHandler returns a handler for the test schema with the options
func newHandler(options ...func(*handler.Handler)) *handler.Handler {
	return handler.New(graphqlgo.New(testSchema), options...)
}

// serve sends a request to the handler returning the recorded response
func serve(h http.Handler, method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Add(headers[i], headers[i+1])
	}
	writer := httptest.NewRecorder()
	h.ServeHTTP(writer, request)
	return writer
}

// contextKey is used to test the handler.Context option
type contextKey struct{}

func withValue(r *http.Request) context.Context {
	return context.WithValue(r.Context(), contextKey{}, r.URL.Path)
}

func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "\u2713" // tick
		failed  = "XXXXX"  //"\u2717" // cross
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%-6s"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%-6s"+format, append([]interface{}{succeed}, args...)...)
	}
}
