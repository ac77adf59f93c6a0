// Package gqlview provides an HTTP handler (a "view") that serves GraphQL over HTTP.
//
// The handler does not implement GraphQL itself.  It takes care of the HTTP side of things:
// decoding GET and POST requests (JSON, application/graphql and forms), batches of requests,
// GraphiQL for browsers, CSRF cookies, status codes, pretty printing, compression and subscriptions
// over a websocket.  Queries are executed by an engine.Executor - adapters are provided for
// github.com/graphql-go/graphql (package engine/graphqlgo) and github.com/graph-gophers/graphql-go
// (package engine/gophers).  For example, here is the code for a complete GraphQL server:

//package main
//
//import (
//	"net/http"
//
//	"github.com/graphql-go/graphql"
//	"github.com/andrewwphillips/gqlview"
//	"github.com/andrewwphillips/gqlview/engine/graphqlgo"
//)
//
//func main() {
//	schema, _ := graphql.NewSchema(graphql.SchemaConfig{
//		Query: graphql.NewObject(graphql.ObjectConfig{
//			Name: "Query",
//			Fields: graphql.Fields{
//				"message": &graphql.Field{
//					Type:    graphql.String,
//					Resolve: func(p graphql.ResolveParams) (interface{}, error) { return "hello, world", nil },
//				},
//			},
//		}),
//	})
//	http.Handle("/graphql", gqlview.MustNew(graphqlgo.New(schema), gqlview.GraphiQL(true)))
//	http.ListenAndServe(":80", nil)
//}

// A query like this:
// {
//    message
// }

// will return this JSON:
// {
//    "data": {
//      "message": "hello, world"
//    }
// }

// and a browser that visits /graphql gets the GraphiQL console.
// See cmd/gqlview for a complete server that loads its settings from a config file.

package gqlview
