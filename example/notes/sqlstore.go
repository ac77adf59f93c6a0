package notes

// sqlstore.go has stores that keep notes in PostgreSQL (pgx) or MySQL (database/sql)

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/andrewwphillips/gqlview/txn"
)

type (
	// PgxQuerier is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx
	PgxQuerier interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
		Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	}

	// PgxStore keeps notes in PostgreSQL
	PgxStore struct {
		db PgxQuerier
	}

	// SQLQuerier is implemented by *sql.DB and *sql.Tx
	SQLQuerier interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}

	// SQLStore keeps notes in MySQL.  The DSN must include parseTime=true.
	SQLStore struct {
		db SQLQuerier
	}
)

const (
	pgxSchema = `CREATE TABLE IF NOT EXISTS notes (
	id         BIGSERIAL PRIMARY KEY,
	text       TEXT NOT NULL,
	author     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`
	mysqlSchema = `CREATE TABLE IF NOT EXISTS notes (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	text       TEXT NOT NULL,
	author     VARCHAR(255) NOT NULL,
	created_at DATETIME NOT NULL
)`
)

// rowID converts a note ID to the integer key of the table.  An ID that is not an integer cannot match a
// row; passing it on would make PostgreSQL fail the query instead.
func rowID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

func NewPgxStore(db PgxQuerier) *PgxStore {
	return &PgxStore{db: db}
}

// Migrate creates the notes table if it does not exist
func (s *PgxStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, pgxSchema)
	return errors.Wrap(err, "creating notes table")
}

// q returns the transaction of the current (atomic) mutation, if any, else the pool
func (s *PgxStore) q(ctx context.Context) PgxQuerier {
	if tx := txn.PgxTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

func scanPgxNote(row pgx.CollectableRow) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Text, &n.Author, &n.CreatedAt)
	return n, err
}

func (s *PgxStore) List(ctx context.Context) ([]Note, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT id::text, text, author, created_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "listing notes")
	}
	return pgx.CollectRows(rows, scanPgxNote)
}

func (s *PgxStore) Get(ctx context.Context, id string) (Note, error) {
	key, ok := rowID(id)
	if !ok {
		return Note{}, ErrNotFound
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT id::text, text, author, created_at FROM notes WHERE id = $1`, key)
	if err != nil {
		return Note{}, errors.Wrap(err, "getting note")
	}
	n, err := pgx.CollectOneRow(rows, scanPgxNote)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

func (s *PgxStore) Add(ctx context.Context, text, author string) (Note, error) {
	n := Note{Text: text, Author: author, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	err := s.q(ctx).QueryRow(ctx, `INSERT INTO notes (text, author, created_at) VALUES ($1, $2, $3) RETURNING id::text`,
		n.Text, n.Author, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return Note{}, errors.Wrap(err, "adding note")
	}
	return n, nil
}

func (s *PgxStore) Delete(ctx context.Context, id string) error {
	key, ok := rowID(id)
	if !ok {
		return ErrNotFound
	}
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM notes WHERE id = $1`, key)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func NewSQLStore(db SQLQuerier) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the notes table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, mysqlSchema)
	return errors.Wrap(err, "creating notes table")
}

func (s *SQLStore) q(ctx context.Context) SQLQuerier {
	if tx := txn.SQLTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

func (s *SQLStore) List(ctx context.Context) ([]Note, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, text, author, created_at FROM notes ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "listing notes")
	}
	defer rows.Close()

	var r []Note
	for rows.Next() {
		var (
			n  Note
			id int64
		)
		if err := rows.Scan(&id, &n.Text, &n.Author, &n.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "listing notes")
		}
		n.ID = strconv.FormatInt(id, 10)
		r = append(r, n)
	}
	return r, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, id string) (Note, error) {
	key, ok := rowID(id)
	if !ok {
		return Note{}, ErrNotFound
	}
	n := Note{ID: strconv.FormatInt(key, 10)}
	err := s.q(ctx).QueryRowContext(ctx, `SELECT text, author, created_at FROM notes WHERE id = ?`, key).
		Scan(&n.Text, &n.Author, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, errors.Wrap(err, "getting note")
	}
	return n, nil
}

func (s *SQLStore) Add(ctx context.Context, text, author string) (Note, error) {
	n := Note{Text: text, Author: author, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	res, err := s.q(ctx).ExecContext(ctx, `INSERT INTO notes (text, author, created_at) VALUES (?, ?, ?)`,
		n.Text, n.Author, n.CreatedAt)
	if err != nil {
		return Note{}, errors.Wrap(err, "adding note")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Note{}, errors.Wrap(err, "adding note")
	}
	n.ID = strconv.FormatInt(id, 10)
	return n, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	key, ok := rowID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, key)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
