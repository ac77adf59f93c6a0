package handler

// execute.go handles the execution of a GraphQL request

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"

	"github.com/andrewwphillips/gqlview/engine"
	"github.com/andrewwphillips/gqlview/txn"
)

var errPanic = errors.New("Internal Server Error - a panic was trapped.  " +
	"This indicates a bug in the GraphQL server.  A stack trace was logged.")

// parseOperation parses the query and returns the operation that will be run, which is nil if it cannot be
// determined (no operation name and more than one operation, or the name was not found)
func parseOperation(query, operationName string) (*ast.OperationDefinition, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return nil, err
	}
	return doc.Operations.ForName(operationName), nil
}

// operationType returns the type of an operation as a string for logs and metrics
func operationType(op *ast.OperationDefinition) string {
	if op == nil {
		return "unknown"
	}
	return string(op.Operation)
}

// executeRequest runs the GraphQL request of an HTTP request.  An error is returned if the request cannot
// be executed at all (which is reported as an HTTP error), otherwise errors are in the response.
func (h *Handler) executeRequest(r *http.Request, p params, log *zap.Logger) (*engine.Response, error) {
	if p.query == "" {
		return nil, badRequest("Must provide query string.")
	}

	op, err := parseOperation(p.query, p.operationName)
	if err != nil {
		return &engine.Response{Errors: gqlerror.List{engine.AsError(err)}}, nil
	}

	if r.Method == http.MethodGet && op != nil && op.Operation != ast.Query {
		return nil, newHTTPError(http.StatusMethodNotAllowed,
			fmt.Sprintf("Can only perform a %s operation from a POST request.", op.Operation), http.MethodPost)
	}

	req := &engine.Request{
		Query:         p.query,
		OperationName: p.operationName,
		Variables:     p.variables,
		RootValue:     h.getRootValue(r),
	}
	return h.runOperation(h.requestContext(r), req, op, log), nil
}

// runOperation executes a request whose operation (if known) is op.  Mutations are run in a transaction if
// atomic mutations are on.  It never returns nil.
func (h *Handler) runOperation(ctx context.Context, req *engine.Request, op *ast.OperationDefinition,
	log *zap.Logger,
) (resp *engine.Response) {
	ctx = txn.WithMutationErrors(ctx)
	log = log.With(zap.String("operation", operationType(op)), zap.String("operation_name", req.OperationName))
	defer func() {
		h.metrics.observeOperation(operationType(op), len(resp.Errors) == 0)
	}()

	if h.atomic == nil || op == nil || op.Operation != ast.Mutation {
		return h.safeExecute(ctx, req, log)
	}

	err := txn.Atomically(ctx, h.atomic, func(ctx context.Context) bool {
		resp = h.safeExecute(ctx, req, log)
		rollback := len(resp.Errors) > 0
		if rollback || txn.MutationErrors(ctx) {
			log.Info("rolling back mutation", zap.Int("errors", len(resp.Errors)))
		}
		return rollback
	})
	if err != nil {
		log.Error("mutation transaction failed", zap.Error(err))
		if resp == nil {
			return engine.ErrorResponse(err)
		}
		resp.Errors = append(resp.Errors, engine.AsError(err))
	}
	return resp
}

// safeExecute runs the request (through any middleware) trapping any panic
func (h *Handler) safeExecute(ctx context.Context, req *engine.Request, log *zap.Logger) (resp *engine.Response) {
	defer func() {
		if err := recover(); err != nil {
			log.Error("panic executing GraphQL request",
				zap.Any("panic", err),
				zap.String("query", req.Query),
				zap.Stack("trace"))
			resp = engine.ErrorResponse(errPanic)
		}
	}()

	resp = h.execute(ctx, req)
	if resp == nil {
		resp = &engine.Response{}
	}
	return resp
}
