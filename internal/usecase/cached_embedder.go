package usecase

import (
	"context"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedEmbedder memoizes query embeddings so repeated preference texts
// skip the model call. Failures are never cached.
type CachedEmbedder struct {
	next  domain.Embedder
	cache *expirable.LRU[string, []float64]
}

// NewCachedEmbedder wraps next with an LRU of the given size and ttl
func NewCachedEmbedder(next domain.Embedder, size int, ttl time.Duration) *CachedEmbedder {
	if size <= 0 {
		size = 256
	}
	return &CachedEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

// EmbedText implements domain.Embedder
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if vector, ok := e.cache.Get(text); ok {
		return vector, nil
	}

	vector, err := e.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, vector)
	return vector, nil
}

// Len returns the number of cached vectors
func (e *CachedEmbedder) Len() int {
	return e.cache.Len()
}
