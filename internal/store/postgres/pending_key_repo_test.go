package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
)

func TestPendingKeyRepo_RoutesByBox(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPendingKeyRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox_item_to_lifecycle_digest \\(outbox_item, digest\\)").
		WithArgs("item-1", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT digest FROM inbox_item_to_lifecycle_digest WHERE inbox_item").
		WithArgs("item-2").
		WillReturnRows(sqlmock.NewRows([]string{"digest"}).AddRow("def"))
	mock.ExpectExec("DELETE FROM inbox_item_to_lifecycle_digest WHERE inbox_item").
		WithArgs("item-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, repo.LinkTx(ctx, tx, model.PendingOutbox, "item-1", "abc"))
	digest, err := repo.ResolveTx(ctx, tx, model.PendingInbox, "item-2")
	require.NoError(t, err)
	assert.Equal(t, "def", digest)
	require.NoError(t, repo.DeleteTx(ctx, tx, model.PendingInbox, "item-2"))

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingKeyRepo_ResolveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPendingKeyRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT digest FROM outbox_item_to_lifecycle_digest").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = repo.ResolveTx(ctx, tx, model.PendingOutbox, "nope")
	require.ErrorIs(t, err, store.ErrPendingKeyNotFound)
}

func TestPendingKeyRepo_UnknownBox(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewPendingKeyRepo(db)

	err := repo.LinkTx(context.Background(), nil, model.PendingBox("sidebox"), "x", "y")
	require.Error(t, err)
}
