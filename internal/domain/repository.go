package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SnapshotStore reads and writes the published menu and embedding snapshots
type SnapshotStore interface {
	GetMenu(ctx context.Context) (*MenuSnapshot, error)
	PutMenu(ctx context.Context, menu *MenuSnapshot) error
	GetEmbeddings(ctx context.Context) ([]EmbeddingRecord, error)
	PutEmbeddings(ctx context.Context, records []EmbeddingRecord) error
}

// ImageStore moves approved images from the staging bucket to the public bucket
type ImageStore interface {
	CopyToPublic(ctx context.Context, stagingKey, publicKey string) error
	DeletePublic(ctx context.Context, key string) error
	DeleteStaging(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Embedder turns text into an embedding vector
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// CompletionOptions tunes a text model call
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextGenerator invokes a hosted language model
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// SheetRepository persists spreadsheet rows
type SheetRepository interface {
	ListRows(ctx context.Context) ([]SheetRow, error)
	FindByID(ctx context.Context, id string) (*SheetRow, error)
	Update(ctx context.Context, key SheetKey, update SheetUpdate) error
	Delete(ctx context.Context, key SheetKey) error
}
