package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

// DefaultPromptTemplate is the prompt handed to the generation model.
// The {context} and {question} placeholders are mandatory; a template
// without them is a deployment error, not a per-request one.
const DefaultPromptTemplate = `You are a helpful AI assistant that answers questions based on the provided context.
Use the following context to answer the user's question accurately and concisely.
If the context doesn't contain enough information to answer the question, say so clearly.

Context:
{context}

Question: {question}

Answer:
`

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"knowhub"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"knowhub"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gemini-1.5-flash"`
	// EmbeddingDim must match the vector(N) column in migrations. Embeddings
	// larger than this (gemini-embedding-001 emits 3072 dims) are Matryoshka
	// truncated and renormalized; models that emit fewer dims are rejected.
	EmbeddingDim int `envconfig:"EMBEDDING_DIM" default:"1536"`

	ChunkSize     int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	HistoryLimit  int `envconfig:"HISTORY_LIMIT" default:"20"`

	PromptTemplate string `envconfig:"PROMPT_TEMPLATE"`

	ExtractorURL string `envconfig:"EXTRACTOR_URL" default:"http://docling:8000"`

	IngestionWorkers int    `envconfig:"INGESTION_WORKERS" default:"4"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"KNOWHUB_UPLOAD_DIR" default:"./uploads"`

	DocumentCacheTTLSeconds int `envconfig:"DOCUMENT_CACHE_TTL_SECONDS" default:"60"`
	DocumentCacheMaxEntries int `envconfig:"DOCUMENT_CACHE_MAX_ENTRIES" default:"128"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIM must be positive", ErrInvalidValue)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidValue)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be non-negative and smaller than CHUNK_SIZE", ErrInvalidValue)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("%w: RETRIEVAL_TOP_K must be positive", ErrInvalidValue)
	}
	if c.IngestionWorkers <= 0 {
		return fmt.Errorf("%w: INGESTION_WORKERS must be positive", ErrInvalidValue)
	}
	if !strings.Contains(c.PromptTemplate, "{context}") || !strings.Contains(c.PromptTemplate, "{question}") {
		return fmt.Errorf("%w: PROMPT_TEMPLATE must contain {context} and {question} placeholders", ErrInvalidValue)
	}
	return nil
}
