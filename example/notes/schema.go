package notes

// schema.go builds the graphql-go schema of the notes example

import (
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"

	"github.com/andrewwphillips/gqlview/engine/graphqlgo"
)

// Anonymous is the author of notes added when no user is logged in
const Anonymous = "anonymous"

var ErrNotAuthor = errors.New("only the author can delete a note")

var noteType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Note",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(Note).ID, nil },
		},
		"text": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(Note).Text, nil },
		},
		"author": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(Note).Author, nil },
		},
		"createdAt": &graphql.Field{
			Type:    graphql.NewNonNull(graphqlgo.Time),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(Note).CreatedAt, nil },
		},
	},
})

// Schema returns the notes schema using store to save notes and broker to send new notes to subscribers
func Schema(store Store, broker *Broker) (graphql.Schema, error) {
	idArg := graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"notes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(noteType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					list, err := store.List(p.Context)
					if list == nil && err == nil {
						list = []Note{}
					}
					return list, err
				},
			},
			"note": &graphql.Field{
				Type: noteType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n, err := store.Get(p.Context, p.Args["id"].(string))
					if errors.Is(err, ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return n, nil
				},
			},
			"me": &graphql.Field{
				Type:        graphql.String,
				Description: "The logged-in user, or null",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if u := User(p.Context); u != "" {
						return u, nil
					}
					return nil, nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addNote": &graphql.Field{
				Type: graphql.NewNonNull(noteType),
				Args: graphql.FieldConfigArgument{"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					text := strings.TrimSpace(p.Args["text"].(string))
					if text == "" {
						return nil, errors.New("note text is empty")
					}
					author := User(p.Context)
					if author == "" {
						author = Anonymous
					}
					n, err := store.Add(p.Context, text, author)
					if err != nil {
						return nil, err
					}
					broker.Publish(n)
					return n, nil
				},
			},
			"deleteNote": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					n, err := store.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					if n.Author != Anonymous && n.Author != User(p.Context) {
						return nil, ErrNotAuthor
					}
					if err := store.Delete(p.Context, id); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
		},
	})

	subscription := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"noteAdded": &graphql.Field{
				Type: graphql.NewNonNull(noteType),
				Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
					in := broker.Subscribe(p.Context)
					out := make(chan interface{})
					go func() {
						defer close(out)
						for n := range in {
							select {
							case out <- n:
							case <-p.Context.Done():
								return
							}
						}
					}()
					return out, nil
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source, nil },
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation, Subscription: subscription})
}
