package usecase

import (
	"slices"

	"github.com/barease/backend/internal/domain"
)

// MatchesFilters reports whether item satisfies every constraint in filters.
// Nil filters and empty constraints always pass.
func MatchesFilters(item *domain.MenuItem, filters *domain.RecommendFilters) bool {
	if filters == nil {
		return true
	}
	if len(filters.Maker) > 0 && !slices.Contains(filters.Maker, item.Maker) {
		return false
	}
	if len(filters.Category) > 0 && !slices.Contains(filters.Category, item.Category) {
		return false
	}
	if filters.Abv != "" && item.AbvClass != filters.Abv {
		return false
	}
	if filters.PriceRange != "" && item.PriceClass != filters.PriceRange {
		return false
	}
	return true
}
