package usecase

import (
	"strings"

	"github.com/barease/backend/internal/domain"
)

const (
	defaultItemName = "No name"
	defaultCategory = "その他"
)

// ConvertRowToMenuItem maps a sheet row to its menu.json representation,
// filling defaults and deriving the ABV and price classes.
func ConvertRowToMenuItem(row *domain.SheetRow) domain.MenuItem {
	item := domain.MenuItem{
		ID:                     row.ID,
		Status:                 domain.MenuStatus(orDefault(row.Status, string(domain.StatusDraft))),
		Name:                   orDefault(row.Name, defaultItemName),
		Maker:                  row.Maker,
		MakerSlug:              orDefault(row.MakerSlug, Slugify(row.Maker)),
		Category:               orDefault(row.Category, defaultCategory),
		Tags:                   CleanTags(row.Tags),
		Description:            orDefault(row.Description, row.AiSuggestedDescription),
		AiSuggestedDescription: row.AiSuggestedDescription,
		AiSuggestedImageURL:    row.AiSuggestedImageURL,
		ImageURL:               row.ImageURL,
		AiStatus:               domain.AiStatus(orDefault(row.AiStatus, string(domain.AiStatusNone))),
		ApproveFlag:            domain.ApproveFlag(orDefault(row.ApproveFlag, string(domain.ApproveFlagNone))),
		ApprovedBy:             row.ApprovedBy,
		ApprovedAt:             row.ApprovedAt,
		UpdatedAt:              row.UpdatedAt,
		Country:                row.Country,
		Manufacturer:           row.Manufacturer,
		Distributor:            row.Distributor,
		Distillery:             row.Distillery,
		Type:                   row.Type,
		CaskNumber:             row.CaskNumber,
		CaskType:               row.CaskType,
		MaturationPlace:        row.MaturationPlace,
		MaturationPeriod:       row.MaturationPeriod,
		AlcoholVolume:          ToPercentage(row.AlcoholVolume),
		AvailableBottles:       nonZero(row.AvailableBottles),
		Price30ml:              nonZero(row.Price30ml),
		Price15ml:              nonZero(row.Price15ml),
		Price10ml:              nonZero(row.Price10ml),
		Notes:                  row.Notes,
		AbvClass:               ClassifyAbv(row.AlcoholVolume),
		PriceClass:             ClassifyPrice(row.Price30ml),
	}
	return item
}

// BuildEmbeddingText joins the fields that describe an item's taste profile
func BuildEmbeddingText(item *domain.MenuItem) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{item.Name, item.Description, strings.Join(item.Tags, ",")} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return truncateRunes(strings.Join(parts, " \n "), maxEmbeddingRunes)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	out := *v
	return &out
}
