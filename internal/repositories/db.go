package repositories

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a DBTX that can start transactions.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Transactor runs a function inside a database transaction. Repositories are
// rebound to the transaction with their WithTx method.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(q DBTX) error) error
}

type pgTransactor struct {
	db DB
}

func NewTransactor(db DB) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(q DBTX) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = multierr.Append(err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
