package graphqlgo

// scalars.go has custom scalars for graphql-go schemas: "Time" and "BigInt"

import (
	"math/big"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

const timeFormat = time.RFC3339 // ISO-8601, as used by most GraphQL "Time" scalars

// Time is a custom scalar for representing a point in time.  Resolvers return a time.Time (or *time.Time)
// and arguments are decoded to a time.Time.
var Time = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Time",
	Description: "A point in time encoded as an RFC 3339 string",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case time.Time:
			return v.Format(timeFormat)
		case *time.Time:
			if v == nil {
				return nil
			}
			return v.Format(timeFormat)
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		if s, ok := value.(string); ok {
			return parseTime(s)
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if v, ok := valueAST.(*ast.StringValue); ok {
			return parseTime(v.Value)
		}
		return nil
	},
})

func parseTime(s string) interface{} {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return nil // graphql-go reports nil as an invalid value
	}
	return t
}

// BigInt is a custom scalar for representing a big.Int.  It is encoded as a string since JSON numbers
// can't hold arbitrarily large integers.
var BigInt = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "BigInt",
	Description: "An arbitrarily large integer encoded as a string",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case *big.Int:
			if v == nil {
				return nil
			}
			return v.String()
		case big.Int:
			return v.String()
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		if s, ok := value.(string); ok {
			return parseBigInt(s)
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		switch v := valueAST.(type) {
		case *ast.StringValue:
			return parseBigInt(v.Value)
		case *ast.IntValue:
			return parseBigInt(v.Value)
		}
		return nil
	},
})

func parseBigInt(s string) interface{} {
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return bi
}
