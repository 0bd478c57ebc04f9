package pgstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/apperr"
	"knowhub/internal/testutils"
)

const testDim = 1536

// axisVector returns a unit vector along the given axis, so cosine
// distances are exactly 0 (same axis) or 1 (orthogonal).
func axisVector(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis] = 1
	return v
}

func insertDocument(t *testing.T, s *testutils.IntegrationSuite, name string) string {
	var id string
	err := s.DB.QueryRow(
		`INSERT INTO documents (filename, original_filename, content_type, file_size, file_path)
		 VALUES ($1, $1, 'text/plain', 1, $1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	store := pgstore.New(s.DB, testDim)

	docA := insertDocument(t, s, "a.txt")
	docB := insertDocument(t, s, "b.txt")

	require.NoError(t, store.UpsertBatch(ctx, docA, []pgstore.Row{
		{Content: "exact match", Vector: axisVector(0), Index: 0},
		{Content: "orthogonal", Vector: axisVector(1), Index: 1},
	}))
	require.NoError(t, store.UpsertBatch(ctx, docB, []pgstore.Row{
		{Content: "also exact", Vector: axisVector(0), Index: 0},
	}))

	t.Run("RankingAndTieBreak", func(t *testing.T) {
		chunks, err := store.Query(ctx, axisVector(0), 3)
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		// Two zero-distance chunks first, insertion order between them,
		// then the orthogonal one.
		assert.Equal(t, "exact match", chunks[0].Content)
		assert.Equal(t, "a.txt", chunks[0].DocumentName)
		assert.Equal(t, "also exact", chunks[1].Content)
		assert.Equal(t, "orthogonal", chunks[2].Content)
		assert.InDelta(t, 0.0, chunks[0].Distance, 1e-6)
		assert.InDelta(t, 1.0, chunks[2].Distance, 1e-6)
	})

	t.Run("KLargerThanStore", func(t *testing.T) {
		chunks, err := store.Query(ctx, axisVector(0), 50)
		require.NoError(t, err)
		assert.Len(t, chunks, 3)
	})

	t.Run("UpsertReplacesPreviousBatch", func(t *testing.T) {
		require.NoError(t, store.UpsertBatch(ctx, docB, []pgstore.Row{
			{Content: "replacement", Vector: axisVector(2), Index: 0},
		}))
		chunks, err := store.GetByDocument(ctx, docB)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "replacement", chunks[0].Content)
	})

	t.Run("BatchForDeletedDocument", func(t *testing.T) {
		docC := insertDocument(t, s, "c.txt")
		_, err := s.DB.Exec(`DELETE FROM documents WHERE id = $1`, docC)
		require.NoError(t, err)

		err = store.UpsertBatch(ctx, docC, []pgstore.Row{
			{Content: "orphan", Vector: axisVector(3), Index: 0},
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("CascadeOnDocumentDelete", func(t *testing.T) {
		_, err := s.DB.Exec(`DELETE FROM documents WHERE id = $1`, docB)
		require.NoError(t, err)

		var n int
		require.NoError(t, s.DB.QueryRow(
			`SELECT COUNT(*) FROM embedding_chunks WHERE document_id = $1`, docB).Scan(&n))
		assert.Zero(t, n)
	})
}
