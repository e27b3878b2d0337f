package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// isoMillis matches the timestamps the spreadsheet side writes
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Sync actions
const (
	SyncActionUpsert = "upsert"
	SyncActionBatch  = "batch"
	SyncActionDelete = "delete"
)

// syncFieldNames are the sheet columns a sync may set or clear
var syncFieldNames = []string{
	"name", "status", "maker", "makerSlug", "category", "tags", "description",
	"aiSuggestedDescription", "aiSuggestedImageUrl", "imageUrl", "aiStatus",
	"approveFlag", "approvedBy", "approvedAt", "updatedAt", "country",
	"manufacturer", "distributor", "distillery", "type", "caskNumber", "caskType",
	"maturationPlace", "maturationPeriod", "alcoholVolume", "availableBottles",
	"price30ml", "price15ml", "price10ml", "notes", "stagingKey", "publicKey",
}

var numericSyncFields = map[string]bool{
	"alcoholVolume":    true,
	"availableBottles": true,
	"price30ml":        true,
	"price15ml":        true,
	"price10ml":        true,
}

// SyncService applies spreadsheet pushes to the sheet table
type SyncService struct {
	sheet     domain.SheetRepository
	images    domain.ImageStore
	generator MenuGenerator
	now       func() time.Time
}

// NewSyncService creates a new sync service with dependencies
func NewSyncService(
	sheet domain.SheetRepository,
	images domain.ImageStore,
	generator MenuGenerator,
) *SyncService {
	return &SyncService{
		sheet:     sheet,
		images:    images,
		generator: generator,
		now:       time.Now,
	}
}

// Sync upserts or deletes the rows in the request and regenerates the menu
// when a published row was touched.
func (s *SyncService) Sync(ctx context.Context, request *domain.SyncRequest) (*domain.SyncResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	action := request.Action
	if action == "" {
		action = SyncActionUpsert
		if request.Items != nil {
			action = SyncActionBatch
		}
	}

	processed := []string{}
	regenerate := false

	switch action {
	case SyncActionDelete:
		ids := request.ItemIDs
		if len(ids) == 0 && request.ItemID != "" {
			ids = []string{request.ItemID}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: missing itemId", domain.ErrMissingPayload)
		}
		for _, id := range ids {
			removed, shouldRegenerate, err := s.deleteItem(ctx, id)
			if err != nil {
				return nil, err
			}
			regenerate = regenerate || shouldRegenerate
			if removed {
				processed = append(processed, id)
			}
		}

	case SyncActionUpsert, SyncActionBatch:
		items := request.Items
		if len(items) == 0 && request.Item != nil {
			items = []domain.SyncItem{request.Item}
		}
		if len(items) == 0 {
			return nil, domain.ErrMissingPayload
		}
		for _, item := range items {
			shouldRegenerate, err := s.upsertItem(ctx, item)
			if err != nil {
				return nil, err
			}
			regenerate = regenerate || shouldRegenerate
			processed = append(processed, item.ID())
		}

	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, action)
	}

	if regenerate {
		if _, err := s.generator.Generate(ctx); err != nil {
			return nil, fmt.Errorf("menu regeneration failed: %w", err)
		}
	}

	return &domain.SyncResult{OK: true, Processed: processed}, nil
}

// upsertItem writes the present fields of item, clearing empty ones.
// Replacing or dropping the public image deletes the previous objects.
func (s *SyncService) upsertItem(ctx context.Context, item domain.SyncItem) (bool, error) {
	id := item.ID()
	if id == "" {
		return false, fmt.Errorf("%w: missing id", domain.ErrInvalidRequest)
	}

	existing, err := s.sheet.FindByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
		return false, fmt.Errorf("failed to look up item %s: %w", id, err)
	}

	now := s.now().UTC().Format(isoMillis)
	createdAt := now
	key := domain.NewSheetKey(id)
	if existing != nil {
		if existing.CreatedAt != "" {
			createdAt = existing.CreatedAt
		}
		if existing.Key.PK != "" && existing.Key.SK != "" {
			key = existing.Key
		}
	}

	update := domain.SheetUpdate{
		Set:          map[string]any{"id": id, "syncedAt": now},
		SetIfMissing: map[string]any{"createdAt": createdAt},
	}

	wasPublished := existing != nil && existing.Published()
	isPublished := item.String("status") == string(domain.StatusPublished) &&
		item.String("approveFlag") == string(domain.ApproveFlagApproved)
	regenerate := wasPublished || isPublished

	var previousPublicKey, previousStagingKey string
	clearImage := false
	if existing != nil && existing.PublicKey != "" {
		newPublicKey := item.String("publicKey")
		if newPublicKey == "" || newPublicKey != existing.PublicKey {
			clearImage = true
			previousPublicKey = existing.PublicKey
			previousStagingKey = existing.StagingKey
			if previousStagingKey == "" {
				previousStagingKey = ExtractKeyFromURL(existing.AiSuggestedImageURL)
			}
		}
	}

	for _, field := range syncFieldNames {
		raw, present := item[field]
		if !present {
			continue
		}
		if field == "imageUrl" && clearImage {
			raw = ""
			regenerate = true
		}
		value := normalizeSyncValue(field, raw)
		if value == nil {
			update.Remove = append(update.Remove, field)
			continue
		}
		update.Set[field] = value
	}

	if err := s.sheet.Update(ctx, key, update); err != nil {
		return false, fmt.Errorf("failed to update item %s: %w", id, err)
	}

	if previousPublicKey != "" {
		s.deleteImage(ctx, s.images.DeletePublic, previousPublicKey)
	}
	if previousStagingKey != "" && previousStagingKey != item.String("stagingKey") {
		s.deleteImage(ctx, s.images.DeleteStaging, previousStagingKey)
	}

	return regenerate, nil
}

// deleteItem removes a row and its images. A missing row is not an error.
func (s *SyncService) deleteItem(ctx context.Context, id string) (removed, regenerate bool, err error) {
	entity, err := s.sheet.FindByID(ctx, id)
	if errors.Is(err, domain.ErrItemNotFound) {
		logging.Ctx(ctx).Warn().Str("component", "sync").Str("id", id).Msg("delete skipped (entity not found)")
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to look up item %s: %w", id, err)
	}

	key := entity.Key
	if key.PK == "" || key.SK == "" {
		key = domain.NewSheetKey(id)
	}
	if err := s.sheet.Delete(ctx, key); err != nil {
		return false, false, fmt.Errorf("failed to delete item %s: %w", id, err)
	}

	publicKey := entity.PublicKey
	if publicKey == "" {
		publicKey = ExtractKeyFromURL(entity.ImageURL)
	}
	stagingKey := entity.StagingKey
	if stagingKey == "" {
		stagingKey = ExtractKeyFromURL(entity.AiSuggestedImageURL)
	}
	s.deleteImage(ctx, s.images.DeletePublic, publicKey)
	s.deleteImage(ctx, s.images.DeleteStaging, stagingKey)

	return true, entity.Published(), nil
}

func (s *SyncService) deleteImage(ctx context.Context, del func(context.Context, string) error, key string) {
	if key == "" {
		return
	}
	if err := del(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "sync").Str("key", key).Msg("image delete failed")
	}
}

// normalizeSyncValue coerces a raw sheet value for storage. A nil result
// means the attribute should be removed.
func normalizeSyncValue(field string, raw any) any {
	switch {
	case field == "tags":
		var tags []string
		switch v := raw.(type) {
		case []any:
			for _, t := range v {
				if str, ok := t.(string); ok {
					tags = append(tags, str)
				}
			}
			tags = CleanTags(tags)
		case []string:
			tags = CleanTags(v)
		case string:
			tags = ParseTags(v)
		}
		if len(tags) == 0 {
			return nil
		}
		return tags

	case numericSyncFields[field]:
		switch v := raw.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if n, ok := domain.ParseNumber(v); ok {
				return n
			}
		}
		return nil

	default:
		switch v := raw.(type) {
		case nil:
			return nil
		case string:
			if strings.TrimSpace(v) == "" {
				return nil
			}
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return fmt.Sprint(v)
		}
	}
}

// ExtractKeyFromURL returns the decoded object key of an absolute URL, or ""
func ExtractKeyFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Path, "/")
}
