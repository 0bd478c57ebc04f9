// Package retrieval embeds questions and fetches their nearest document
// chunks from the vector store.
package retrieval

import (
	"context"
	"time"

	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/middleware"
)

// SearchResult is one retrieved chunk, in rank order.
type SearchResult struct {
	Content      string  `json:"content"`
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	ChunkIndex   int     `json:"chunkIndex"`
	Distance     float64 `json:"distance"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, vector []float32, k int) ([]pgstore.Chunk, error)
}

type Service struct {
	embedder Embedder
	store    VectorStore
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, logger: l}
}

// EmbedQuery turns a question into its query vector with a single
// embedding call.
func (s *Service) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	return s.embedder.Embed(ctx, question)
}

// Search runs one similarity query, returning up to k chunks in ascending
// cosine-distance order. Successful searches are appended to the query log.
func (s *Service) Search(ctx context.Context, query string, vector []float32, k int) ([]SearchResult, error) {
	start := time.Now()

	chunks, err := s.store.Query(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, SearchResult{
			Content:      c.Content,
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.Index,
			Distance:     c.Distance,
		})
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return results, nil
}
