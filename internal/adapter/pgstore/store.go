// Package pgstore persists chunk embeddings in Postgres with pgvector and
// serves exact cosine-distance nearest-neighbor queries.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"knowhub/internal/apperr"
)

// Row is one chunk to be written for a document.
type Row struct {
	Content string
	Vector  []float32
	Index   int
}

// Chunk is a stored chunk returned by queries, annotated with its owning
// document's display name and, for similarity queries, its cosine distance.
type Chunk struct {
	ID           int64
	DocumentID   string
	DocumentName string
	Content      string
	Index        int
	Distance     float64
}

type Store struct {
	db  *sql.DB
	dim int
}

// New returns a store expecting vectors of the given dimension.
func New(db *sql.DB, dim int) *Store {
	return &Store{db: db, dim: dim}
}

// UpsertBatch replaces all chunk rows for the document with the given batch
// in a single transaction: either every row is durably written or none are.
// Writing a batch for a document deleted meanwhile fails with ErrNotFound
// (the foreign key guarantees no orphaned rows).
func (s *Store) UpsertBatch(ctx context.Context, documentID string, rows []Row) error {
	for _, r := range rows {
		if len(r.Vector) != s.dim {
			return fmt.Errorf("%w: vector dimension %d, expected %d", apperr.ErrValidation, len(r.Vector), s.dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", apperr.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM embedding_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: clear previous chunks: %v", apperr.ErrStorage, err)
	}

	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO embedding_chunks (document_id, content, embedding, chunk_index) VALUES ($1, $2, $3, $4)`,
			documentID, r.Content, pgvector.NewVector(r.Vector), r.Index)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: document %s", apperr.ErrNotFound, documentID)
			}
			return fmt.Errorf("%w: insert chunk %d: %v", apperr.ErrStorage, r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch: %v", apperr.ErrStorage, err)
	}
	return nil
}

// DeleteByDocument removes all chunk rows for the document. Deleting a
// document with no rows is not an error.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM embedding_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", apperr.ErrStorage, err)
	}
	return nil
}

// Query returns up to k chunks ordered by ascending cosine distance from the
// query vector, ties broken by insertion order. Fewer than k stored rows is
// not an error; an empty store yields an empty result.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", apperr.ErrValidation, k)
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: vector dimension %d, expected %d", apperr.ErrValidation, len(vector), s.dim)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, d.original_filename, c.content, c.chunk_index, c.embedding <=> $1 AS distance
		 FROM embedding_chunks c
		 JOIN documents d ON d.id = c.document_id
		 ORDER BY c.embedding <=> $1, c.id
		 LIMIT $2`,
		pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Content, &c.Index, &c.Distance); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", apperr.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", apperr.ErrStorage, err)
	}
	return chunks, nil
}

// GetByDocument returns the document's chunks in position order, without
// distances. Used by the document detail endpoint.
func (s *Store) GetByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, d.original_filename, c.content, c.chunk_index
		 FROM embedding_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.document_id = $1
		 ORDER BY c.chunk_index`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Content, &c.Index); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", apperr.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list chunks: %v", apperr.ErrStorage, err)
	}
	return chunks, nil
}

// Count returns the total number of stored chunk rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count chunks: %v", apperr.ErrStorage, err)
	}
	return n, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
