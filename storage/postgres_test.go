package storage

import (
	"context"
	"errors"
	"testing"

	"calltrack.pro/license/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStorage, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPostgresStorageWithPool(mock), mock
}

func boolPtr(b bool) *bool { return &b }

func TestPostgresStorage_Insert_OK_and_UniqueViolation(t *testing.T) {
	s, mock := newMockPostgres(t)
	defer mock.Close()
	ctx := context.Background()
	l := models.NewLicense("CTP-AAAA-BBBB-CCCC")

	mock.ExpectExec(`INSERT INTO licenses \(key, active\) VALUES \(\$1, \$2\)`).
		WithArgs(l.Key, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Insert(ctx, l))

	mock.ExpectExec(`INSERT INTO licenses \(key, active\) VALUES \(\$1, \$2\)`).
		WithArgs(l.Key, true).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := s.Insert(ctx, l)
	require.ErrorIs(t, err, ErrDuplicateKey)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Insert_Failure(t *testing.T) {
	s, mock := newMockPostgres(t)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO licenses`).
		WithArgs("CTP-AAAA-BBBB-CCCC", true).
		WillReturnError(errors.New("connection refused"))

	err := s.Insert(context.Background(), models.NewLicense("CTP-AAAA-BBBB-CCCC"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDuplicateKey)
	require.Contains(t, err.Error(), "connection refused")
}

func TestPostgresStorage_FindByKey(t *testing.T) {
	s, mock := newMockPostgres(t)
	defer mock.Close()
	ctx := context.Background()
	q := `SELECT key, active FROM licenses WHERE key = \$1`

	// active
	mock.ExpectQuery(q).
		WithArgs("CTP-AAAA-BBBB-CCCC").
		WillReturnRows(pgxmock.NewRows([]string{"key", "active"}).AddRow("CTP-AAAA-BBBB-CCCC", boolPtr(true)))
	l, err := s.FindByKey(ctx, "CTP-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	require.True(t, l.Honored())

	// inactive
	mock.ExpectQuery(q).
		WithArgs("CTP-AAAA-BBBB-CCCC").
		WillReturnRows(pgxmock.NewRows([]string{"key", "active"}).AddRow("CTP-AAAA-BBBB-CCCC", boolPtr(false)))
	l, err = s.FindByKey(ctx, "CTP-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	require.NotNil(t, l)
	require.False(t, l.Honored())

	// null active is not strictly true
	mock.ExpectQuery(q).
		WithArgs("CTP-AAAA-BBBB-CCCC").
		WillReturnRows(pgxmock.NewRows([]string{"key", "active"}).AddRow("CTP-AAAA-BBBB-CCCC", (*bool)(nil)))
	l, err = s.FindByKey(ctx, "CTP-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	require.False(t, l.Honored())

	// not found
	mock.ExpectQuery(q).
		WithArgs("CTP-ZZZZ-ZZZZ-ZZZZ").
		WillReturnError(pgx.ErrNoRows)
	l, err = s.FindByKey(ctx, "CTP-ZZZZ-ZZZZ-ZZZZ")
	require.NoError(t, err)
	require.Nil(t, l)

	// store failure
	mock.ExpectQuery(q).
		WithArgs("CTP-AAAA-BBBB-CCCC").
		WillReturnError(errors.New("timeout"))
	_, err = s.FindByKey(ctx, "CTP-AAAA-BBBB-CCCC")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPostgresStorageWithPool(mock)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.Error(t, s.Ping(context.Background()))
}
