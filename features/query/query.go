// Package query answers natural-language questions against the uploaded
// document corpus and records every interaction.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"knowhub/internal/apperr"
	"knowhub/internal/retrieval"
)

// FallbackAnswer is returned when the store holds no chunks to ground an
// answer in. The interaction is still recorded.
const FallbackAnswer = "I don't have any relevant documents to answer your question. Please upload some documents first."

// state names one phase of the answer pipeline. Every Answer call walks
// RECEIVED → EMBEDDING_QUERY → RETRIEVING → {NO_CONTEXT | CONTEXT_FOUND} →
// BUILDING_PROMPT → GENERATING → PERSISTING → DONE synchronously, with no
// retry at any transition.
type state string

const (
	stateReceived       state = "RECEIVED"
	stateEmbeddingQuery state = "EMBEDDING_QUERY"
	stateRetrieving     state = "RETRIEVING"
	stateNoContext      state = "NO_CONTEXT"
	stateContextFound   state = "CONTEXT_FOUND"
	stateBuildingPrompt state = "BUILDING_PROMPT"
	stateGenerating     state = "GENERATING"
	statePersisting     state = "PERSISTING"
	stateDone           state = "DONE"
)

// Record is one persisted question/answer interaction. Append-only.
type Record struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	ContextDocuments []string  `json:"contextDocuments"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Answer is the result of one answered question.
type Answer struct {
	Answer           string   `json:"answer"`
	ContextDocuments []string `json:"contextDocuments"`
}

type Retriever interface {
	EmbedQuery(ctx context.Context, question string) ([]float32, error)
	Search(ctx context.Context, query string, vector []float32, k int) ([]retrieval.SearchResult, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

type Service struct {
	retriever    Retriever
	generator    Generator
	history      HistoryRepository
	template     string
	topK         int
	historyLimit int
}

func NewService(retriever Retriever, generator Generator, history HistoryRepository,
	template string, topK, historyLimit int) *Service {
	return &Service{
		retriever:    retriever,
		generator:    generator,
		history:      history,
		template:     template,
		topK:         topK,
		historyLimit: historyLimit,
	}
}

// Answer runs the full pipeline for one question: exactly one embedding
// call, one similarity query, at most one generation call, and exactly one
// history write. Any failure aborts the call; nothing is persisted on
// failure.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	s.transition(ctx, stateReceived)
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", apperr.ErrValidation)
	}

	s.transition(ctx, stateEmbeddingQuery)
	vector, err := s.retriever.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	s.transition(ctx, stateRetrieving)
	results, err := s.retriever.Search(ctx, question, vector, s.topK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		s.transition(ctx, stateNoContext)
		s.transition(ctx, statePersisting)
		if err := s.history.Append(ctx, &Record{
			Question:         question,
			Answer:           FallbackAnswer,
			ContextDocuments: []string{},
		}); err != nil {
			return nil, err
		}
		s.transition(ctx, stateDone)
		return &Answer{Answer: FallbackAnswer, ContextDocuments: []string{}}, nil
	}

	s.transition(ctx, stateContextFound)
	contextText, sources := BuildContext(results)

	s.transition(ctx, stateBuildingPrompt)
	prompt := RenderPrompt(s.template, contextText, question)

	s.transition(ctx, stateGenerating)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.transition(ctx, statePersisting)
	if err := s.history.Append(ctx, &Record{
		Question:         question,
		Answer:           answer,
		ContextDocuments: sources,
	}); err != nil {
		return nil, err
	}

	s.transition(ctx, stateDone)
	return &Answer{Answer: answer, ContextDocuments: sources}, nil
}

// History returns the most recent interactions, newest first.
func (s *Service) History(ctx context.Context) ([]Record, error) {
	return s.history.Recent(ctx, s.historyLimit)
}

func (s *Service) transition(ctx context.Context, to state) {
	slog.DebugContext(ctx, "answer pipeline", "state", to)
}
