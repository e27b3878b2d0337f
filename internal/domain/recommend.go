package domain

// EmbeddingRecord pairs a menu item id with its embedding vector (embeddings.json)
type EmbeddingRecord struct {
	ID     string    `json:"id"`
	Vector []float64 `json:"vector"`
}

// RecommendFilters narrows the candidate set before ranking.
// Empty fields are not applied.
type RecommendFilters struct {
	Abv        Class    `json:"abv,omitempty"`
	PriceRange Class    `json:"priceRange,omitempty"`
	Category   []string `json:"category,omitempty"`
	Maker      []string `json:"maker,omitempty"`
}

// RecommendRequest represents a recommendation request
type RecommendRequest struct {
	Text    string            `json:"text" binding:"required"`
	Filters *RecommendFilters `json:"filters,omitempty"`
	Limit   *int              `json:"limit,omitempty"` // nil uses the default; 0 returns no items
}

// RecommendItemResult is a single ranked item
type RecommendItemResult struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Name     string  `json:"name"`
	Maker    string  `json:"maker"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// RecommendResponse is the ranked result list, best first
type RecommendResponse struct {
	Items []RecommendItemResult `json:"items"`
}
