package document

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowhub/internal/apperr"
)

func newRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepo(db), mock
}

func TestPostgresRepo_Save(t *testing.T) {
	repo, mock := newRepo(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("uuid_a.txt", "a.txt", "text/plain", int64(5), "/tmp/uuid_a.txt", "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("doc-1", now))

	doc := &Document{
		Filename:         "uuid_a.txt",
		OriginalFilename: "a.txt",
		ContentType:      "text/plain",
		FileSize:         5,
		FilePath:         "/tmp/uuid_a.txt",
		ExtractedText:    "hello",
	}
	require.NoError(t, repo.Save(context.Background(), doc))
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, now, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT .+ FROM documents WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresRepo_Get(t *testing.T) {
	repo, mock := newRepo(t)

	rows := sqlmock.NewRows([]string{"id", "filename", "original_filename", "content_type",
		"file_size", "file_path", "extracted_text", "created_at"}).
		AddRow("doc-1", "uuid_a.txt", "a.txt", "text/plain", int64(5), "/tmp/uuid_a.txt", "hello", time.Now())
	mock.ExpectQuery("SELECT .+ FROM documents WHERE id").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.OriginalFilename)
	assert.Equal(t, "hello", doc.ExtractedText)
}

func TestPostgresRepo_List(t *testing.T) {
	repo, mock := newRepo(t)

	rows := sqlmock.NewRows([]string{"id", "filename", "original_filename", "content_type",
		"file_size", "file_path", "created_at"}).
		AddRow("doc-2", "f2", "b.txt", "text/plain", int64(1), "/tmp/f2", time.Now()).
		AddRow("doc-1", "f1", "a.txt", "text/plain", int64(1), "/tmp/f1", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-2", docs[0].ID)
}

func TestPostgresRepo_Delete(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "doc-1"))
}

func TestPostgresRepo_Delete_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresRepo_Exists(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, exists)
}
