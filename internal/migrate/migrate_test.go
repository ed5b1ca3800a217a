package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTablesStopsAtFirstFailure(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("permission denied"))

	err = Tables(context.Background(), sqlx.NewDb(raw, "postgres"), zap.NewNop().Sugar())
	assert.ErrorContains(t, err, "ensure users")
	require.NoError(t, mock.ExpectationsWereMet())
}
