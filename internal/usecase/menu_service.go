package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
	"github.com/cenkalti/backoff/v4"
)

// MenuGenerator rebuilds the published snapshots
type MenuGenerator interface {
	Generate(ctx context.Context) (*GenerateResult, error)
}

// GenerateResult summarizes a regeneration run
type GenerateResult struct {
	Total    int `json:"total"`
	Embedded int `json:"embedded"`
	Failed   int `json:"failed"`
}

// MenuServiceConfig holds configuration for the menu service
type MenuServiceConfig struct {
	EmbeddingRetries     int
	RetryInitialInterval time.Duration
	Now                  func() time.Time
}

// MenuService builds menu.json and embeddings.json from the sheet table and
// serves the public listing.
type MenuService struct {
	sheet           domain.SheetRepository
	store           domain.SnapshotStore
	snapshots       *SnapshotReader
	embedder        domain.Embedder
	retries         int
	initialInterval time.Duration
	now             func() time.Time
}

// NewMenuService creates a new menu service with dependencies
func NewMenuService(
	sheet domain.SheetRepository,
	store domain.SnapshotStore,
	snapshots *SnapshotReader,
	embedder domain.Embedder,
	config MenuServiceConfig,
) *MenuService {
	retries := config.EmbeddingRetries
	if retries < 0 {
		retries = 0
	}
	interval := config.RetryInitialInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &MenuService{
		sheet:           sheet,
		store:           store,
		snapshots:       snapshots,
		embedder:        embedder,
		retries:         retries,
		initialInterval: interval,
		now:             now,
	}
}

// Generate rebuilds both snapshots from the sheet table.
// Items whose embedding fails are left out of embeddings.json and logged.
func (s *MenuService) Generate(ctx context.Context) (*GenerateResult, error) {
	log := logging.Ctx(ctx).With().Str("component", "menu").Logger()
	log.Info().Msg("menu generation started")

	rows, err := s.sheet.ListRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheet rows: %w", err)
	}
	log.Info().Int("rows", len(rows)).Msg("sheet rows fetched")

	items := make([]domain.MenuItem, 0, len(rows))
	for i := range rows {
		if !rows[i].Published() {
			continue
		}
		items = append(items, ConvertRowToMenuItem(&rows[i]))
	}

	menu := &domain.MenuSnapshot{
		Items:     items,
		Total:     len(items),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.PutMenu(ctx, menu); err != nil {
		return nil, fmt.Errorf("failed to write menu snapshot: %w", err)
	}
	log.Info().Int("total", menu.Total).Msg("menu snapshot written")

	result := &GenerateResult{Total: len(items)}
	records := make([]domain.EmbeddingRecord, 0, len(items))
	for i := range items {
		if items[i].ID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vector, err := s.embedWithRetry(ctx, BuildEmbeddingText(&items[i]))
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("id", items[i].ID).Msg("embedding failed")
			continue
		}
		records = append(records, domain.EmbeddingRecord{ID: items[i].ID, Vector: vector})
	}
	result.Embedded = len(records)

	if err := s.store.PutEmbeddings(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to write embedding snapshot: %w", err)
	}
	if s.snapshots != nil {
		s.snapshots.Invalidate(ctx)
	}

	log.Info().
		Int("total", result.Total).
		Int("embedded", result.Embedded).
		Int("failed", result.Failed).
		Msg("menu generation finished")
	return result, nil
}

// embedWithRetry retries throttled embedding calls with exponential backoff
func (s *MenuService) embedWithRetry(ctx context.Context, text string) ([]float64, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialInterval

	operation := func() ([]float64, error) {
		vector, err := s.embedder.EmbedText(ctx, text)
		if err != nil && !errors.Is(err, domain.ErrModelThrottled) {
			return nil, backoff.Permanent(err)
		}
		return vector, err
	}

	return backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.retries)), ctx))
}

// List returns the recommendable items matching the listing query
func (s *MenuService) List(ctx context.Context, query domain.MenuQuery) (*domain.MenuSnapshot, error) {
	menu, err := s.snapshots.Menu(ctx)
	if err != nil {
		return nil, err
	}

	items := FilterMenu(menu.Items, query)
	return &domain.MenuSnapshot{
		Items:     items,
		Total:     len(items),
		UpdatedAt: menu.UpdatedAt,
	}, nil
}

// Makers summarizes recommendable items per maker, sorted by maker name
func (s *MenuService) Makers(ctx context.Context) ([]domain.MakerSummary, error) {
	menu, err := s.snapshots.Menu(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeMakers(menu.Items), nil
}

// FilterMenu applies the public listing filters. Maker matches either the
// slug or the display name; every requested tag must be present.
func FilterMenu(items []domain.MenuItem, query domain.MenuQuery) []domain.MenuItem {
	keyword := strings.ToLower(strings.TrimSpace(query.Keyword))
	tags := query.TagList()

	filtered := make([]domain.MenuItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if !item.Recommendable() {
			continue
		}
		if query.Maker != "" && item.MakerSlug != query.Maker && item.Maker != query.Maker {
			continue
		}
		if query.Category != "" && item.Category != query.Category {
			continue
		}
		if keyword != "" && !strings.Contains(searchableText(item), keyword) {
			continue
		}
		if len(tags) > 0 && !hasAllTags(item.Tags, tags) {
			continue
		}
		filtered = append(filtered, *item)
	}
	return filtered
}

func searchableText(item *domain.MenuItem) string {
	return strings.ToLower(strings.Join([]string{
		item.Name, item.Maker, item.Category, item.Description, strings.Join(item.Tags, " "),
	}, " "))
}

func hasAllTags(itemTags, wanted []string) bool {
	have := make(map[string]bool, len(itemTags))
	for _, tag := range itemTags {
		have[strings.ToLower(tag)] = true
	}
	for _, tag := range wanted {
		if !have[tag] {
			return false
		}
	}
	return true
}

// SummarizeMakers groups recommendable items by maker
func SummarizeMakers(items []domain.MenuItem) []domain.MakerSummary {
	byMaker := make(map[string]*domain.MakerSummary)
	for i := range items {
		item := &items[i]
		if !item.Recommendable() || item.Maker == "" {
			continue
		}
		summary, ok := byMaker[item.Maker]
		if !ok {
			summary = &domain.MakerSummary{Maker: item.Maker, MakerSlug: item.MakerSlug}
			byMaker[item.Maker] = summary
		}
		if summary.Country == "" {
			summary.Country = item.Country
		}
		summary.ItemCount++
	}

	summaries := make([]domain.MakerSummary, 0, len(byMaker))
	for _, summary := range byMaker {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Maker < summaries[j].Maker
	})
	return summaries
}
