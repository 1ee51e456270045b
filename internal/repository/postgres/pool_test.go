package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestInTx_CommitOnSuccess(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	err := db.inTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM users`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.inTx(context.Background(), func(context.Context, pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackOnPanic(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = db.inTx(context.Background(), func(context.Context, pgx.Tx) error { panic("x") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_IgnoresCallerCancel(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.inTx(ctx, func(ctx context.Context, _ pgx.Tx) error {
		cancel()
		return ctx.Err()
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_BeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))
	called := false
	err := db.inTx(context.Background(), func(context.Context, pgx.Tx) error { called = true; return nil })
	require.Error(t, err)
	require.False(t, called)
}

func TestPingWithRetry(t *testing.T) {
	prev := connectRetryDelay
	connectRetryDelay = time.Millisecond
	t.Cleanup(func() { connectRetryDelay = prev })

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	db := &DB{Pool: mock}

	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()
	require.NoError(t, db.pingWithRetry(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	mock.ExpectPing().WillReturnError(errors.New("still down"))
	err = db.pingWithRetry(context.Background())
	require.ErrorContains(t, err, "still down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgErrorClassifiers(t *testing.T) {
	t.Parallel()
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isForeignKeyViolation(nil))
}
