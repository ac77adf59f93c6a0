package txn

// context.go has the context helpers used to pass the transaction and the mutation errors flag to resolvers

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
)

type (
	txKey    struct{}
	errorKey struct{}
)

// WithTx returns a copy of ctx carrying the transaction
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext returns the transaction of the mutation being executed, or nil if it is not running atomically
func FromContext(ctx context.Context) Tx {
	tx, _ := ctx.Value(txKey{}).(Tx)
	return tx
}

// PgxTx returns the current transaction if it is a pgx transaction, else nil
func PgxTx(ctx context.Context) pgx.Tx {
	tx, _ := FromContext(ctx).(pgx.Tx)
	return tx
}

// SQLTx returns the current transaction if it is a database/sql transaction, else nil
func SQLTx(ctx context.Context) *sql.Tx {
	if tx, ok := FromContext(ctx).(sqlTx); ok {
		return tx.Tx
	}
	return nil
}

// WithMutationErrors returns a copy of ctx that can record that a mutation reported errors to the client
// (eg in its payload) without failing with a GraphQL error.  The handler adds this to every request.
func WithMutationErrors(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorKey{}, new(atomic.Bool))
}

// MarkMutationErrors records that the current mutation had errors so that its transaction is rolled back.
// It does nothing if ctx was not set up with WithMutationErrors.
func MarkMutationErrors(ctx context.Context) {
	if flag, ok := ctx.Value(errorKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}

// MutationErrors reports whether MarkMutationErrors has been called for the request
func MutationErrors(ctx context.Context) bool {
	flag, ok := ctx.Value(errorKey{}).(*atomic.Bool)
	return ok && flag.Load()
}
