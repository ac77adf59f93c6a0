package engine

// errors.go converts the error types of the various GraphQL libraries into gqlerror.Error

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// AsError returns err as a *gqlerror.Error, wrapping it if it is not one already
func AsError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return &gqlerror.Error{Message: err.Error()}
}

// Path converts a path as returned by most engines (a list of field names and list indexes) to an ast.Path.
// A nil or empty path returns nil.
func Path(elements []interface{}) ast.Path {
	if len(elements) == 0 {
		return nil
	}
	r := make(ast.Path, 0, len(elements))
	for _, e := range elements {
		switch v := e.(type) {
		case string:
			r = append(r, ast.PathName(v))
		case int:
			r = append(r, ast.PathIndex(v))
		case int32:
			r = append(r, ast.PathIndex(v))
		case int64:
			r = append(r, ast.PathIndex(v))
		case float64: // list indexes decoded from JSON
			r = append(r, ast.PathIndex(int(v)))
		}
	}
	return r
}

// HasPathless reports whether any of the errors is not associated with a field (ie has no path).  Such errors
// come from parsing or validation (the request was bad) rather than from resolvers.
func HasPathless(list gqlerror.List) bool {
	for _, err := range list {
		if err == nil || len(err.Path) == 0 {
			return true
		}
	}
	return false
}
