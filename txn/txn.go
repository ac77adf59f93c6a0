// Package txn provides the transaction handling used to make GraphQL mutations atomic.
//
// When atomic mutations are enabled the handler begins a transaction before a mutation is executed,
// makes it available to resolvers through the context (see FromContext, PgxTx and SQLTx) and rolls it
// back if the result contains errors or a resolver called MarkMutationErrors.  Otherwise it is committed.
package txn

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type (
	// Tx is a transaction that can be committed or rolled back.  pgx.Tx satisfies it directly.
	Tx interface {
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// Beginner starts transactions
	Beginner interface {
		Begin(ctx context.Context) (Tx, error)
	}

	// PgxBeginner is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx (nested transactions)
	PgxBeginner interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	}

	pgxBeginner struct{ db PgxBeginner }

	sqlBeginner struct {
		db   *sql.DB
		opts *sql.TxOptions
	}

	// sqlTx adapts *sql.Tx (whose Commit/Rollback take no context) to Tx
	sqlTx struct{ *sql.Tx }
)

// Pgx returns a Beginner that starts pgx transactions
func Pgx(db PgxBeginner) Beginner {
	return pgxBeginner{db: db}
}

func (b pgxBeginner) Begin(ctx context.Context) (Tx, error) {
	return b.db.Begin(ctx)
}

// SQL returns a Beginner for a database/sql connection pool (any driver, eg MySQL or pgx's stdlib driver).
// The options may be nil.
func SQL(db *sql.DB, opts *sql.TxOptions) Beginner {
	return sqlBeginner{db: db, opts: opts}
}

func (b sqlBeginner) Begin(ctx context.Context) (Tx, error) {
	tx, err := b.db.BeginTx(ctx, b.opts)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

func (t sqlTx) Commit(context.Context) error   { return t.Tx.Commit() }
func (t sqlTx) Rollback(context.Context) error { return t.Tx.Rollback() }

// Atomically runs fn inside a new transaction.  The transaction is rolled back if fn returns true, if fn
// panics (the panic is propagated) or if mutation errors were marked on ctx; otherwise it is committed.
func Atomically(ctx context.Context, b Beginner, fn func(ctx context.Context) (rollback bool)) (err error) {
	tx, err := b.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	rollback := fn(WithTx(ctx, tx))
	done = true
	if rollback || MutationErrors(ctx) {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			return errors.Wrap(err, "rollback transaction")
		}
		return nil
	}
	return errors.Wrap(tx.Commit(ctx), "commit transaction")
}
