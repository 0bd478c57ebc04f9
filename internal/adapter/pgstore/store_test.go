package pgstore_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/apperr"
)

const dim = 3

func vec(vals ...float32) []float32 { return vals }

func TestStore_Query_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := pgstore.New(db, dim)

	t.Run("NonPositiveK", func(t *testing.T) {
		_, err := store.Query(context.Background(), vec(1, 0, 0), 0)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = store.Query(context.Background(), vec(1, 0, 0), -3)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("WrongDimension", func(t *testing.T) {
		_, err := store.Query(context.Background(), vec(1, 0), 5)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestStore_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := pgstore.New(db, dim)

	t.Run("RankedRows", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "document_id", "original_filename", "content", "chunk_index", "distance"}).
			AddRow(int64(1), "doc-1", "a.txt", "The sky is blue.", 0, 0.02).
			AddRow(int64(7), "doc-2", "b.txt", "Grass is green.", 0, 0.31)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id, c.document_id, d.original_filename, c.content, c.chunk_index, c.embedding <=> $1 AS distance")).
			WithArgs(sqlmock.AnyArg(), 5).
			WillReturnRows(rows)

		chunks, err := store.Query(context.Background(), vec(1, 0, 0), 5)
		assert.NoError(t, err)
		assert.Len(t, chunks, 2)
		assert.Equal(t, "a.txt", chunks[0].DocumentName)
		assert.True(t, chunks[0].Distance <= chunks[1].Distance)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		mock.ExpectQuery("SELECT c.id, c.document_id").
			WithArgs(sqlmock.AnyArg(), 5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "original_filename", "content", "chunk_index", "distance"}))

		chunks, err := store.Query(context.Background(), vec(1, 0, 0), 5)
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestStore_UpsertBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := pgstore.New(db, dim)

	t.Run("AllRowsInOneTransaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM embedding_chunks WHERE document_id = $1")).
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO embedding_chunks (document_id, content, embedding, chunk_index) VALUES ($1, $2, $3, $4)")).
			WithArgs("doc-1", "first", sqlmock.AnyArg(), 0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO embedding_chunks (document_id, content, embedding, chunk_index) VALUES ($1, $2, $3, $4)")).
			WithArgs("doc-1", "second", sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := store.UpsertBatch(context.Background(), "doc-1", []pgstore.Row{
			{Content: "first", Vector: vec(1, 0, 0), Index: 0},
			{Content: "second", Vector: vec(0, 1, 0), Index: 1},
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RejectsWrongDimensionBeforeWriting", func(t *testing.T) {
		err := store.UpsertBatch(context.Background(), "doc-1", []pgstore.Row{
			{Content: "bad", Vector: vec(1, 0), Index: 0},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnInsertFailure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM embedding_chunks").
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO embedding_chunks").
			WithArgs("doc-1", "first", sqlmock.AnyArg(), 0).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := store.UpsertBatch(context.Background(), "doc-1", []pgstore.Row{
			{Content: "first", Vector: vec(1, 0, 0), Index: 0},
			{Content: "second", Vector: vec(0, 1, 0), Index: 1},
		})
		assert.ErrorIs(t, err, apperr.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_DeleteByDocument_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := pgstore.New(db, dim)

	// No rows deleted is still success.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM embedding_chunks WHERE document_id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.DeleteByDocument(context.Background(), "ghost"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := pgstore.New(db, dim)

	rows := sqlmock.NewRows([]string{"id", "document_id", "original_filename", "content", "chunk_index"}).
		AddRow(int64(1), "doc-1", "a.txt", "chunk zero", 0).
		AddRow(int64(2), "doc-1", "a.txt", "chunk one", 1)

	mock.ExpectQuery("SELECT c.id, c.document_id, d.original_filename, c.content, c.chunk_index").
		WithArgs("doc-1").
		WillReturnRows(rows)

	chunks, err := store.GetByDocument(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}
