package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		m := &Manager{DB: db}
		err = m.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return nil })
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns plain errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		m := &Manager{DB: db}
		err = m.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries serialization failures", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		m := &Manager{DB: db}
		err = m.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			calls++
			if calls == 1 {
				return &pq.Error{Code: "40001"}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
