package graphqlgo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/engine/graphqlgo"
)

var schema = func() graphql.Schema {
	s, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"name": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(map[string]interface{})["name"], nil
					},
				},
				"fail": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return nil, errors.New("failed")
					},
				},
			},
		}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{
			Name: "Subscription",
			Fields: graphql.Fields{
				"tick": &graphql.Field{
					Type: graphql.Int,
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						ch := make(chan interface{})
						go func() {
							defer close(ch)
							for i := 1; ; i++ {
								select {
								case ch <- i:
								case <-p.Context.Done():
									return
								}
							}
						}()
						return ch, nil
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source, nil },
				},
			},
		}),
	})
	if err != nil {
		panic(err)
	}
	return s
}()

func TestExecute(t *testing.T) {
	exec := graphqlgo.New(schema, map[string]interface{}{"name": "default"})
	ctx := context.Background()

	resp := exec.Execute(ctx, &engine.Request{Query: "{name}"})
	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{"name": "default"}, resp.Data)

	resp = exec.Execute(ctx, &engine.Request{Query: "{name}", RootValue: map[string]interface{}{"name": "request"}})
	assert.Equal(t, map[string]interface{}{"name": "request"}, resp.Data)

	resp = exec.Execute(ctx, &engine.Request{Query: "{fail}"})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "failed", resp.Errors[0].Message)
	assert.Equal(t, ast.Path{ast.PathName("fail")}, resp.Errors[0].Path)
	assert.False(t, engine.HasPathless(resp.Errors))

	resp = exec.Execute(ctx, &engine.Request{Query: "{"})
	assert.True(t, engine.HasPathless(resp.Errors))
	assert.NotEmpty(t, resp.Errors[0].Locations)
}

func TestSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := graphqlgo.New(schema).Subscribe(ctx, &engine.Request{Query: "subscription{tick}"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		select {
		case r := <-ch:
			assert.Equal(t, map[string]interface{}{"tick": i}, r.Data)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for subscription result")
		}
	}
	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
