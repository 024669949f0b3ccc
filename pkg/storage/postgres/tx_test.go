package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/storage"
	"xssdawn/pkg/storage/postgres"

	"github.com/stretchr/testify/require"
)

func TestPgSQL_Begin_NestedAndHandles(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pg.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	inner, ok := tx.(*postgres.PgSQL)
	require.True(t, ok)
	_, isTx := inner.DB.(*sql.Tx)
	require.True(t, isTx)
	require.Nil(t, inner.Pool, "closing a tx handle must not close the pool")

	_, err = inner.Begin(ctx)
	require.ErrorIs(t, err, storage.ErrAlreadyInTx)

	require.NoError(t, inner.Ping(ctx))
	require.NoError(t, pg.Ping(ctx))
}

func TestPgSQL_CommitRollback_NotInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	require.ErrorIs(t, pg.Commit(), storage.ErrNotInTx)
	require.ErrorIs(t, pg.Rollback(), storage.ErrNotInTx)
}

func TestPgSQL_Commit_PersistsRun(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pg.Begin(ctx)
	require.NoError(t, err)

	stored, err := tx.StoreRun(ctx, newRun("example.com"))
	require.NoError(t, err)

	// not visible outside the transaction yet
	run, err := pg.RunByID(ctx, stored.ID)
	require.NoError(t, err)
	require.Nil(t, run)

	require.NoError(t, tx.Commit())

	run, err = pg.RunByID(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, run)
}

func TestPgSQL_Rollback_DiscardsRun(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := pg.Begin(ctx)
	require.NoError(t, err)

	stored, err := tx.StoreRun(ctx, newRun("example.com"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	run, err := pg.RunByID(ctx, stored.ID)
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestPgSQL_WithTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var committed domain.RunID
	err := pg.WithTx(ctx, func(s storage.AllStorage) error {
		stored, err := s.StoreRun(ctx, newRun("example.com"))
		if err != nil {
			return err
		}
		committed = stored.ID

		return nil
	})
	require.NoError(t, err)

	run, err := pg.RunByID(ctx, committed)
	require.NoError(t, err)
	require.NotNil(t, run)

	boom := errors.New("boom")
	var discarded domain.RunID
	err = pg.WithTx(ctx, func(s storage.AllStorage) error {
		stored, err := s.StoreRun(ctx, newRun("example.com"))
		require.NoError(t, err)
		discarded = stored.ID

		return boom
	})
	require.ErrorIs(t, err, boom)

	run, err = pg.RunByID(ctx, discarded)
	require.NoError(t, err)
	require.Nil(t, run)
}
