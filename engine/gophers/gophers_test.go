package gophers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/engine/gophers"
)

const sdl = `
schema { query: Query subscription: Subscription }
type Query {
	dbl(v: Int!): Int!
	sum(list: [Float!]!): Float!
	fail: String
}
type Subscription {
	count(to: Int!): Int!
}`

type resolver struct{}

func (resolver) Dbl(args struct{ V int32 }) int32 { return 2 * args.V }

func (resolver) Sum(args struct{ List []float64 }) float64 {
	var t float64
	for _, v := range args.List {
		t += v
	}
	return t
}

func (resolver) Fail() (*string, error) { return nil, errors.New("failed") }

func (resolver) Count(ctx context.Context, args struct{ To int32 }) <-chan int32 {
	ch := make(chan int32)
	go func() {
		defer close(ch)
		for i := int32(1); i <= args.To; i++ {
			select {
			case ch <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func TestExecute(t *testing.T) {
	exec, err := gophers.Parse(sdl, &resolver{})
	require.NoError(t, err)
	ctx := context.Background()

	// variables as they come from the handler (integers decoded as int64)
	resp := exec.Execute(ctx, &engine.Request{
		Query:     "query($v: Int!, $l: [Float!]!) { dbl(v: $v) sum(list: $l) }",
		Variables: map[string]interface{}{"v": int64(21), "l": []interface{}{int64(1), 2.5}},
	})
	assert.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"dbl":42,"sum":3.5}`, string(resp.Data.(json.RawMessage)))

	resp = exec.Execute(ctx, &engine.Request{Query: "{ fail }"})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "failed", resp.Errors[0].Message)
	assert.Equal(t, ast.Path{ast.PathName("fail")}, resp.Errors[0].Path)

	resp = exec.Execute(ctx, &engine.Request{Query: "{ zzzz }"})
	assert.True(t, engine.HasPathless(resp.Errors))
	assert.Nil(t, resp.Data)
}

func TestSubscribe(t *testing.T) {
	exec, err := gophers.Parse(sdl, &resolver{})
	require.NoError(t, err)

	ch, err := exec.Subscribe(context.Background(), &engine.Request{
		Query:     "subscription($to: Int!) { count(to: $to) }",
		Variables: map[string]interface{}{"to": int64(2)},
	})
	require.NoError(t, err)

	var got []string
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case r, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, string(r.Data.(json.RawMessage)))
		case <-timeout:
			t.Fatal("timed out waiting for subscription")
		}
	}
	assert.Equal(t, []string{`{"count":1}`, `{"count":2}`}, got)
}
