package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		DBHost:           "localhost",
		DBUser:           "knowhub",
		DBName:           "knowhub",
		EmbeddingDim:     1536,
		ChunkSize:        1000,
		ChunkOverlap:     200,
		RetrievalTopK:    5,
		IngestionWorkers: 4,
		PromptTemplate:   DefaultPromptTemplate,
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, 1536, cfg.EmbeddingDim)
	assert.Equal(t, DefaultPromptTemplate, cfg.PromptTemplate)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DBHost = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestValidate_PromptTemplate(t *testing.T) {
	t.Run("MissingContextPlaceholder", func(t *testing.T) {
		cfg := validConfig()
		cfg.PromptTemplate = "Question: {question}"

		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("MissingQuestionPlaceholder", func(t *testing.T) {
		cfg := validConfig()
		cfg.PromptTemplate = "Context: {context}"

		err := cfg.Validate()
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("BothPlaceholdersPresent", func(t *testing.T) {
		cfg := validConfig()
		cfg.PromptTemplate = "ctx {context} q {question}"

		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_ChunkParams(t *testing.T) {
	t.Run("ZeroChunkSize", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
	})

	t.Run("OverlapNotSmallerThanSize", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkOverlap = cfg.ChunkSize
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
	})

	t.Run("NegativeOverlap", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkOverlap = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
	})
}

func TestDefaultPromptTemplate_HasPlaceholders(t *testing.T) {
	assert.True(t, strings.Contains(DefaultPromptTemplate, "{context}"))
	assert.True(t, strings.Contains(DefaultPromptTemplate, "{question}"))
}
