package database

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSessionParamsURL(t *testing.T) {
	dsn, err := withSessionParams(Config{
		DSN:              "postgres://u:p@localhost:5432/db?sslmode=disable",
		TimeZone:         "Asia/Kolkata",
		StatementTimeout: 3 * time.Second,
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "disable", q.Get("sslmode"))
	assert.Equal(t, "Asia/Kolkata", q.Get("timezone"))
	assert.Equal(t, "3000", q.Get("statement_timeout"))
	assert.Empty(t, q.Get("client_encoding"))
}

func TestWithSessionParamsKeyValue(t *testing.T) {
	dsn, err := withSessionParams(Config{
		DSN:            "host=localhost dbname=db",
		TimeZone:       "UTC",
		ClientEncoding: "UTF8",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=localhost dbname=db client_encoding='UTF8' timezone='UTC'", dsn)
}

func TestWithSessionParamsUnchanged(t *testing.T) {
	dsn, err := withSessionParams(Config{DSN: "postgres://localhost/db"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/db", dsn)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'it\'s'`, quoteLiteral("it's"))
	assert.Equal(t, `'c:\\pg\\a b'`, quoteLiteral(`c:\pg\a b`))
	assert.Equal(t, `''`, quoteLiteral(""))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x/y")
	t.Setenv("DATABASE_MAX_CONNS", "3")
	t.Setenv("DATABASE_STATEMENT_TIMEOUT", "2s")
	t.Setenv("DATABASE_AUTO_MIGRATE", "false")

	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://x/y", cfg.DSN)
	assert.Equal(t, 3, cfg.MaxConns)
	assert.Equal(t, 2*time.Second, cfg.StatementTimeout)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.False(t, cfg.AutoMigrate)
}

func TestWithTx(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "postgres")

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()
		require.NoError(t, WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return nil }))
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()
		err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
