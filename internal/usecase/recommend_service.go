package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// Limit defaults
const (
	DefaultRecommendLimit = 5
	MaxRecommendLimit     = 20
)

// RecommendServiceConfig holds configuration for the recommendation service
type RecommendServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// RecommendService ranks menu items against free-text preferences
type RecommendService struct {
	snapshots    *SnapshotReader
	embedder     domain.Embedder
	defaultLimit int
	maxLimit     int
}

// NewRecommendService creates a new recommendation service with dependencies
func NewRecommendService(
	snapshots *SnapshotReader,
	embedder domain.Embedder,
	config RecommendServiceConfig,
) *RecommendService {
	defaultLimit := config.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultRecommendLimit
	}
	maxLimit := config.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxRecommendLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	return &RecommendService{
		snapshots:    snapshots,
		embedder:     embedder,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Recommend ranks the published menu against the request text.
// Flow: validate -> load snapshots -> embed query -> filter/score -> sort -> truncate
func (s *RecommendService) Recommend(
	ctx context.Context,
	request *domain.RecommendRequest,
) (*domain.RecommendResponse, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	text := NormalizePreferenceText(request.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}
	if err := validateFilters(request.Filters); err != nil {
		return nil, err
	}
	if request.Limit != nil && *request.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidRequest)
	}
	limit := s.resolveLimit(request.Limit)

	menu, err := s.snapshots.Menu(ctx)
	if err != nil {
		return nil, err
	}
	embeddings, err := s.snapshots.Embeddings(ctx)
	if err != nil {
		return nil, err
	}

	query, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	items := Rank(menu.Items, IndexEmbeddings(embeddings), query, request.Filters, limit)

	logging.Ctx(ctx).Debug().
		Str("component", "recommend").
		Int("candidates", len(menu.Items)).
		Int("returned", len(items)).
		Int("limit", limit).
		Msg("recommendation ranked")

	return &domain.RecommendResponse{Items: items}, nil
}

// resolveLimit applies the default when no limit was sent and caps the rest
func (s *RecommendService) resolveLimit(limit *int) int {
	if limit == nil {
		return s.defaultLimit
	}
	if *limit > s.maxLimit {
		return s.maxLimit
	}
	return *limit
}

func validateFilters(filters *domain.RecommendFilters) error {
	if filters == nil {
		return nil
	}
	if filters.Abv != "" && !filters.Abv.Valid() {
		return fmt.Errorf("%w: unknown abv class %q", domain.ErrInvalidRequest, filters.Abv)
	}
	if filters.PriceRange != "" && !filters.PriceRange.Valid() {
		return fmt.Errorf("%w: unknown price range %q", domain.ErrInvalidRequest, filters.PriceRange)
	}
	return nil
}

// IndexEmbeddings maps item ids to vectors. The first record for an id wins.
func IndexEmbeddings(records []domain.EmbeddingRecord) map[string][]float64 {
	index := make(map[string][]float64, len(records))
	for _, record := range records {
		if _, exists := index[record.ID]; !exists {
			index[record.ID] = record.Vector
		}
	}
	return index
}

type scoredItem struct {
	item  *domain.MenuItem
	score float64
}

// Rank scores recommendable items against query and returns at most limit
// results ordered by descending similarity. Items without an embedding or
// failing the filters are skipped. Equal scores keep menu order.
func Rank(
	items []domain.MenuItem,
	embeddings map[string][]float64,
	query []float64,
	filters *domain.RecommendFilters,
	limit int,
) []domain.RecommendItemResult {
	scored := make([]scoredItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if !item.Recommendable() {
			continue
		}
		vector, ok := embeddings[item.ID]
		if !ok {
			continue
		}
		if !MatchesFilters(item, filters) {
			continue
		}
		scored = append(scored, scoredItem{item: item, score: CosineSimilarity(query, vector)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]domain.RecommendItemResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, domain.RecommendItemResult{
			ID:       s.item.ID,
			Score:    s.score,
			Name:     s.item.Name,
			Maker:    s.item.Maker,
			ImageURL: s.item.ImageURL,
			Reason:   s.item.Description,
		})
	}
	return results
}
