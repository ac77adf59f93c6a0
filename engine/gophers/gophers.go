// Package gophers adapts a github.com/graph-gophers/graphql-go schema to the engine interfaces.
// The root resolver is bound when the schema is parsed so engine.Request.RootValue is ignored.
package gophers

import (
	"context"
	"encoding/json"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/andrewwphillips/gqlview/engine"
)

// Executor runs requests against a parsed graph-gophers schema
type Executor struct {
	schema *graphql.Schema
}

// New returns an executor for an already parsed schema
func New(schema *graphql.Schema) *Executor {
	return &Executor{schema: schema}
}

// Parse parses the schema (SDL) binding it to the root resolver and returns an executor for it.
// The resolver must be a pointer (eg &Query{}) as graph-gophers rejects a struct value.
func Parse(sdl string, resolver interface{}, opts ...graphql.SchemaOpt) (*Executor, error) {
	s, err := graphql.ParseSchema(sdl, resolver, opts...)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

// Execute runs a query or mutation
func (e *Executor) Execute(ctx context.Context, req *engine.Request) *engine.Response {
	return convert(e.schema.Exec(ctx, req.Query, req.OperationName, normaliseVariables(req.Variables)))
}

// Subscribe starts a subscription, returning a channel of results that is closed when the subscription ends
func (e *Executor) Subscribe(ctx context.Context, req *engine.Request) (<-chan *engine.Response, error) {
	in, err := e.schema.Subscribe(ctx, req.Query, req.OperationName, normaliseVariables(req.Variables))
	if err != nil {
		return nil, err
	}
	out := make(chan *engine.Response)
	go func() {
		defer close(out)
		for v := range in {
			r, ok := v.(*graphql.Response)
			if !ok {
				continue
			}
			select {
			case out <- convert(r):
			case <-ctx.Done():
				go func() {
					for range in {
					}
				}()
				return
			}
		}
	}()
	return out, nil
}

func convert(r *graphql.Response) *engine.Response {
	resp := &engine.Response{Errors: convertErrors(r.Errors)}
	if len(r.Data) > 0 {
		resp.Data = json.RawMessage(r.Data)
	}
	return resp
}

func convertErrors(errs []*gqlerrors.QueryError) gqlerror.List {
	if len(errs) == 0 {
		return nil
	}
	list := make(gqlerror.List, 0, len(errs))
	for _, qe := range errs {
		e := &gqlerror.Error{
			Message:    qe.Message,
			Path:       engine.Path(qe.Path),
			Extensions: qe.Extensions,
		}
		for _, loc := range qe.Locations {
			e.Locations = append(e.Locations, gqlerror.Location{Line: loc.Line, Column: loc.Column})
		}
		list = append(list, e)
	}
	return list
}

// normaliseVariables converts integer values back to float64 (as produced by a plain JSON decode) since
// graph-gophers expects variables in that form.  The map is copied, not modified.
func normaliseVariables(vars map[string]interface{}) map[string]interface{} {
	if vars == nil {
		return nil
	}
	r := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		r[k] = normalise(v)
	}
	return r
}

func normalise(v interface{}) interface{} {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		return normaliseVariables(v)
	case []interface{}:
		r := make([]interface{}, len(v))
		for i, e := range v {
			r[i] = normalise(e)
		}
		return r
	}
	return v
}
