package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestWithinTxCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tenants`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err = NewTransactor(mock).WithinTx(context.Background(), func(q DBTX) error {
		return NewTenantRepo(q).Delete(context.Background(), id)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cause := errors.New("insufficient stock")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = NewTransactor(mock).WithinTx(context.Background(), func(q DBTX) error {
		return cause
	})
	assert.Same(t, cause, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxReportsFailedRollback(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cause := errors.New("insufficient stock")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	err = NewTransactor(mock).WithinTx(context.Background(), func(q DBTX) error {
		return cause
	})
	assert.ErrorIs(t, err, cause)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestBeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	called := false
	err = NewTransactor(mock).WithinTx(context.Background(), func(q DBTX) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = NewTransactor(mock).WithinTx(context.Background(), func(q DBTX) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
