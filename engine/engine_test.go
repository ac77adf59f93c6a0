package engine_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/andrewwphillips/gqlview/engine"
)

func TestChain(t *testing.T) {
	var calls []string
	exec := engine.ExecuteFunc(func(ctx context.Context, req *engine.Request) *engine.Response {
		calls = append(calls, "exec "+req.Query)
		return &engine.Response{Data: req.Query}
	})
	mw := func(name string) engine.Middleware {
		return func(next engine.ExecuteFunc) engine.ExecuteFunc {
			return func(ctx context.Context, req *engine.Request) *engine.Response {
				calls = append(calls, name)
				return next(ctx, req)
			}
		}
	}

	resp := engine.Chain(exec, mw("a"), mw("b"))(context.Background(), &engine.Request{Query: "q"})
	assert.Equal(t, "q", resp.Data)
	assert.Equal(t, []string{"a", "b", "exec q"}, calls)

	calls = nil
	engine.Chain(exec)(context.Background(), &engine.Request{Query: "r"})
	assert.Equal(t, []string{"exec r"}, calls)
}

func TestAsError(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, &gqlerror.Error{Message: "plain"}, engine.AsError(plain))

	gqlErr := &gqlerror.Error{Message: "gql", Path: ast.Path{ast.PathName("a")}}
	assert.Same(t, gqlErr, engine.AsError(errors.Wrap(gqlErr, "wrapped")))

	resp := engine.ErrorResponse(plain)
	assert.Nil(t, resp.Data)
	assert.Equal(t, gqlerror.List{{Message: "plain"}}, resp.Errors)
}

func TestPath(t *testing.T) {
	assert.Nil(t, engine.Path(nil))
	assert.Nil(t, engine.Path([]interface{}{}))
	assert.Equal(t,
		ast.Path{ast.PathName("a"), ast.PathIndex(1), ast.PathIndex(2), ast.PathIndex(3), ast.PathIndex(4), ast.PathName("b")},
		engine.Path([]interface{}{"a", 1, int32(2), int64(3), 4.0, "b"}))
}

func TestHasPathless(t *testing.T) {
	withPath := &gqlerror.Error{Message: "a", Path: ast.Path{ast.PathName("a")}}
	assert.False(t, engine.HasPathless(nil))
	assert.False(t, engine.HasPathless(gqlerror.List{withPath}))
	assert.True(t, engine.HasPathless(gqlerror.List{withPath, {Message: "b"}}))
	assert.True(t, engine.HasPathless(gqlerror.List{nil}))
}
