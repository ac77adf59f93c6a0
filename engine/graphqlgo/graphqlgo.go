// Package graphqlgo adapts a github.com/graphql-go/graphql schema to the engine interfaces
package graphqlgo

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/andrewwphillips/gqlview/engine"
)

// Executor runs requests against a graphql-go schema.  It implements both engine.Executor and engine.Subscriber.
type Executor struct {
	schema graphql.Schema
	root   map[string]interface{} // used when the request does not supply its own root value
}

// New returns an executor for the schema.  The optional root is the default root object passed to top-level resolvers.
func New(schema graphql.Schema, root ...map[string]interface{}) *Executor {
	e := &Executor{schema: schema}
	if len(root) > 0 {
		e.root = root[0]
	}
	return e
}

// Execute runs a query or mutation
func (e *Executor) Execute(ctx context.Context, req *engine.Request) *engine.Response {
	return convert(graphql.Do(e.params(ctx, req)))
}

// Subscribe starts a subscription, returning a channel of results that is closed when the subscription ends
func (e *Executor) Subscribe(ctx context.Context, req *engine.Request) (<-chan *engine.Response, error) {
	in := graphql.Subscribe(e.params(ctx, req))
	out := make(chan *engine.Response)
	go func() {
		defer close(out)
		for r := range in {
			select {
			case out <- convert(r):
			case <-ctx.Done():
				go func() {
					for range in {
					} // let the engine finish sending
				}()
				return
			}
		}
	}()
	return out, nil
}

func (e *Executor) params(ctx context.Context, req *engine.Request) graphql.Params {
	p := graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		RootObject:     e.root,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	}
	if m, ok := req.RootValue.(map[string]interface{}); ok {
		p.RootObject = m
	}
	return p
}

func convert(r *graphql.Result) *engine.Response {
	if r == nil {
		return &engine.Response{}
	}
	return &engine.Response{Data: r.Data, Errors: convertErrors(r.Errors)}
}

func convertErrors(errs []gqlerrors.FormattedError) gqlerror.List {
	if len(errs) == 0 {
		return nil
	}
	list := make(gqlerror.List, 0, len(errs))
	for _, fe := range errs {
		e := &gqlerror.Error{
			Message:    fe.Message,
			Path:       engine.Path(fe.Path),
			Extensions: fe.Extensions,
		}
		for _, loc := range fe.Locations {
			e.Locations = append(e.Locations, gqlerror.Location{Line: loc.Line, Column: loc.Column})
		}
		list = append(list, e)
	}
	return list
}
