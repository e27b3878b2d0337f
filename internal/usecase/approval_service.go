package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// ApprovalService publishes an approved image and description for an item
type ApprovalService struct {
	sheet     domain.SheetRepository
	images    domain.ImageStore
	generator MenuGenerator
	now       func() time.Time
}

// NewApprovalService creates a new approval service with dependencies
func NewApprovalService(
	sheet domain.SheetRepository,
	images domain.ImageStore,
	generator MenuGenerator,
) *ApprovalService {
	return &ApprovalService{
		sheet:     sheet,
		images:    images,
		generator: generator,
		now:       time.Now,
	}
}

// Approve copies the staging image to the public bucket, marks the item as
// approved and regenerates the menu snapshots.
func (s *ApprovalService) Approve(ctx context.Context, request *domain.ApprovalRequest) error {
	if request == nil {
		return domain.ErrInvalidRequest
	}
	log := logging.Ctx(ctx).With().Str("component", "webhook").Str("item_id", request.ItemID).Logger()

	if request.StagingKey != "" && request.PublicKey != "" {
		if err := s.images.CopyToPublic(ctx, request.StagingKey, request.PublicKey); err != nil {
			return fmt.Errorf("failed to publish image: %w", err)
		}
		log.Info().Str("staging_key", request.StagingKey).Str("public_key", request.PublicKey).Msg("image copied")
	} else {
		log.Info().Msg("image copy skipped (missing keys)")
	}

	if err := s.updateApprovedItem(ctx, request); err != nil {
		return err
	}

	if _, err := s.generator.Generate(ctx); err != nil {
		return fmt.Errorf("menu regeneration failed: %w", err)
	}
	return nil
}

func (s *ApprovalService) updateApprovedItem(ctx context.Context, request *domain.ApprovalRequest) error {
	if request.ItemID == "" {
		return nil
	}
	log := logging.Ctx(ctx).With().Str("component", "webhook").Str("item_id", request.ItemID).Logger()

	entity, err := s.sheet.FindByID(ctx, request.ItemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		log.Warn().Msg("sheet update skipped (entity not found)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up item %s: %w", request.ItemID, err)
	}

	update := domain.SheetUpdate{
		Set: map[string]any{"updatedAt": s.now().UTC().Format(isoMillis)},
	}
	if request.PublicKey != "" {
		update.Set["imageUrl"] = s.images.PublicURL(request.PublicKey)
		update.Set["publicKey"] = request.PublicKey
	}
	if entity.AiSuggestedDescription != "" {
		update.Set["description"] = entity.AiSuggestedDescription
	}
	if entity.AiStatus != string(domain.AiStatusApproved) {
		update.Set["aiStatus"] = string(domain.AiStatusApproved)
	}

	if len(update.Set) == 1 {
		log.Info().Msg("sheet update skipped (no changes)")
		return nil
	}

	key := entity.Key
	if key.PK == "" || key.SK == "" {
		key = domain.NewSheetKey(request.ItemID)
	}
	if err := s.sheet.Update(ctx, key, update); err != nil {
		return fmt.Errorf("failed to update item %s: %w", request.ItemID, err)
	}
	log.Info().Msg("sheet update complete")
	return nil
}
