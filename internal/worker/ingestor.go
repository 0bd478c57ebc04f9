package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/apperr"
	"knowhub/internal/text"
)

// Document is the ingestion input: an uploaded document with its already
// extracted text.
type Document struct {
	ID            string
	Name          string
	ExtractedText string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkStore interface {
	UpsertBatch(ctx context.Context, documentID string, rows []pgstore.Row) error
}

// DocumentChecker reports whether a document still exists. Ingestion
// re-checks right before the batch write so a deletion racing an in-flight
// ingestion never leaves orphaned chunk rows.
type DocumentChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Ingestor chunks a document, embeds every chunk, and writes the whole set
// as one batch. Any embedding failure abandons the document: no partial
// batch is ever written.
type Ingestor struct {
	embedder  Embedder
	store     ChunkStore
	documents DocumentChecker
	chunkSize int
	overlap   int
}

func NewIngestor(e Embedder, s ChunkStore, d DocumentChecker, chunkSize, overlap int) *Ingestor {
	return &Ingestor{embedder: e, store: s, documents: d, chunkSize: chunkSize, overlap: overlap}
}

func (ing *Ingestor) Ingest(ctx context.Context, doc Document) error {
	if strings.TrimSpace(doc.ExtractedText) == "" {
		slog.InfoContext(ctx, "document has no extractable text, skipping ingestion", "document_id", doc.ID)
		return nil
	}

	chunks := text.Chunk(doc.ExtractedText, ing.chunkSize, ing.overlap)

	rows := make([]pgstore.Row, 0, len(chunks))
	for i, content := range chunks {
		vec, err := ing.embedder.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embed chunk %d of document %s: %w", i, doc.ID, err)
		}
		rows = append(rows, pgstore.Row{Content: content, Vector: vec, Index: i})
	}

	// The document may have been deleted while we were embedding. Check
	// once more and discard silently if so; the store's foreign key is the
	// backstop for the remaining window.
	exists, err := ing.documents.Exists(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("check document %s: %w", doc.ID, err)
	}
	if !exists {
		slog.InfoContext(ctx, "document deleted during ingestion, discarding chunks",
			"document_id", doc.ID, "chunks", len(rows))
		return nil
	}

	if err := ing.store.UpsertBatch(ctx, doc.ID, rows); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			slog.InfoContext(ctx, "document deleted during ingestion, discarding chunks",
				"document_id", doc.ID, "chunks", len(rows))
			return nil
		}
		return fmt.Errorf("store chunks for document %s: %w", doc.ID, err)
	}

	slog.InfoContext(ctx, "document ingested", "document_id", doc.ID, "name", doc.Name, "chunks", len(rows))
	return nil
}
