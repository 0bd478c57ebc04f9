// Package document owns the lifecycle of uploaded documents: storage,
// text extraction, background ingestion, and deletion with chunk cleanup.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"knowhub/internal/adapter/pgstore"
	"knowhub/internal/apperr"
	"knowhub/internal/cache"
	"knowhub/internal/extract"
	"knowhub/internal/worker"
)

type Document struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename"`
	ContentType      string    `json:"contentType"`
	FileSize         int64     `json:"fileSize"`
	FilePath         string    `json:"-"`
	ExtractedText    string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type ChunkStore interface {
	DeleteByDocument(ctx context.Context, documentID string) error
	GetByDocument(ctx context.Context, documentID string) ([]pgstore.Chunk, error)
}

type TextExtractor interface {
	Text(ctx context.Context, ft extract.FileType, filename string, content []byte) (string, error)
}

type Ingestor interface {
	Ingest(ctx context.Context, doc worker.Document) error
}

type TaskPool interface {
	Submit(name string, fn func(context.Context) error) *worker.Handle
}

const listCacheKey = "documents:all"

type Service struct {
	repo       Repository
	chunkStore ChunkStore
	extractor  TextExtractor
	ingestor   Ingestor
	pool       TaskPool
	uploadDir  string
	listCache  *cache.Cache[[]Document]
}

func NewService(repo Repository, chunkStore ChunkStore, extractor TextExtractor,
	ingestor Ingestor, pool TaskPool, uploadDir string, listCache *cache.Cache[[]Document]) *Service {
	return &Service{
		repo:       repo,
		chunkStore: chunkStore,
		extractor:  extractor,
		ingestor:   ingestor,
		pool:       pool,
		uploadDir:  uploadDir,
		listCache:  listCache,
	}
}

// Upload is the raw upload input, already read from the request.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Upload validates the content type, stores the file, extracts its text,
// persists the document row, and kicks off background ingestion. The caller
// gets the document back immediately; chunks appear once ingestion finishes.
func (s *Service) Upload(ctx context.Context, up Upload) (*Document, error) {
	ft, err := extract.ParseFileType(up.ContentType)
	if err != nil {
		return nil, err
	}
	if len(up.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", apperr.ErrValidation)
	}

	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(up.Filename))
	path := filepath.Clean(filepath.Join(s.uploadDir, filename))
	if err := os.WriteFile(path, up.Content, 0o600); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	extracted, err := s.extractor.Text(ctx, ft, up.Filename, up.Content)
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.WarnContext(ctx, "failed to clean up stored file", "error", removeErr, "path", path)
		}
		return nil, fmt.Errorf("extract text: %w", err)
	}

	doc := &Document{
		Filename:         filename,
		OriginalFilename: up.Filename,
		ContentType:      up.ContentType,
		FileSize:         int64(len(up.Content)),
		FilePath:         path,
		ExtractedText:    extracted,
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.listCache.Invalidate(listCacheKey)

	// Fire and forget: the upload response does not wait for embeddings.
	s.pool.Submit("ingest:"+doc.ID, func(taskCtx context.Context) error {
		return s.ingestor.Ingest(taskCtx, worker.Document{
			ID:            doc.ID,
			Name:          doc.OriginalFilename,
			ExtractedText: doc.ExtractedText,
		})
	})

	return doc, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	if docs, ok := s.listCache.Get(listCacheKey); ok {
		return docs, nil
	}
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.listCache.Set(listCacheKey, docs)
	return docs, nil
}

// Detail is a document with its stored chunks.
type Detail struct {
	Document
	Chunks      []pgstore.Chunk `json:"chunks"`
	TotalChunks int             `json:"totalChunks"`
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch chunks", "error", err, "document_id", id)
		chunks = []pgstore.Chunk{}
	}

	return &Detail{Document: *doc, Chunks: chunks, TotalChunks: len(chunks)}, nil
}

// Delete removes the document's chunks, its stored file (best effort), and
// finally the document row. Chunk cleanup happens synchronously so a query
// issued right after deletion never sees the document's chunks.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkStore.DeleteByDocument(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "failed to remove stored file", "error", err, "path", doc.FilePath)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.listCache.Invalidate(listCacheKey)
	return nil
}

// Reingest re-submits an existing document for background ingestion, used
// after a failed ingestion run.
func (s *Service) Reingest(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	s.pool.Submit("ingest:"+doc.ID, func(taskCtx context.Context) error {
		return s.ingestor.Ingest(taskCtx, worker.Document{
			ID:            doc.ID,
			Name:          doc.OriginalFilename,
			ExtractedText: doc.ExtractedText,
		})
	})
	return nil
}
