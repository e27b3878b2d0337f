package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

const (
	menuCacheKey       = "snapshot:menu"
	embeddingsCacheKey = "snapshot:embeddings"
)

// SnapshotReader loads menu and embedding snapshots, keeping a short-lived
// copy in the cache so each request does not hit object storage.
type SnapshotReader struct {
	store domain.SnapshotStore
	cache domain.CacheRepository
	ttl   time.Duration
}

// NewSnapshotReader creates a reader. A nil cache or zero ttl disables caching.
func NewSnapshotReader(store domain.SnapshotStore, cache domain.CacheRepository, ttl time.Duration) *SnapshotReader {
	return &SnapshotReader{store: store, cache: cache, ttl: ttl}
}

// Menu returns the current menu snapshot
func (r *SnapshotReader) Menu(ctx context.Context) (*domain.MenuSnapshot, error) {
	var menu domain.MenuSnapshot
	if r.fromCache(ctx, menuCacheKey, &menu) {
		return &menu, nil
	}

	loaded, err := r.store.GetMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotUnavailable, err)
	}
	r.toCache(ctx, menuCacheKey, loaded)
	return loaded, nil
}

// Embeddings returns the current embedding snapshot
func (r *SnapshotReader) Embeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	var records []domain.EmbeddingRecord
	if r.fromCache(ctx, embeddingsCacheKey, &records) {
		return records, nil
	}

	loaded, err := r.store.GetEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotUnavailable, err)
	}
	r.toCache(ctx, embeddingsCacheKey, loaded)
	return loaded, nil
}

// Invalidate drops cached snapshots after regeneration
func (r *SnapshotReader) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	for _, key := range []string{menuCacheKey, embeddingsCacheKey} {
		if err := r.cache.Delete(ctx, key); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("snapshot cache invalidation failed")
		}
	}
}

func (r *SnapshotReader) fromCache(ctx context.Context, key string, out any) bool {
	if r.cache == nil || r.ttl <= 0 {
		return false
	}
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding undecodable cached snapshot")
		return false
	}
	return true
}

func (r *SnapshotReader) toCache(ctx context.Context, key string, value any) {
	if r.cache == nil || r.ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	// Write failures are logged and ignored
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("snapshot cache write failed")
	}
}
