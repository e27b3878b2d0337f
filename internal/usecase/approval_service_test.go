package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApprovalFixture(rows ...domain.SheetRow) (*ApprovalService, *MockSheetRepository, *MockImageStore, *MockMenuGenerator) {
	sheet := NewMockSheetRepository(rows...)
	images := &MockImageStore{}
	generator := &MockMenuGenerator{}
	service := NewApprovalService(sheet, images, generator)
	service.now = func() time.Time { return fixedNow }
	return service, sheet, images, generator
}

func TestApprove_PublishesImageAndDescription(t *testing.T) {
	row := sheetRow("9", "Published", "Approved")
	row.AiStatus = string(domain.AiStatusNeedsReview)
	row.AiSuggestedDescription = "A honeyed Speyside dram"
	service, sheet, images, generator := newApprovalFixture(row)

	err := service.Approve(context.Background(), &domain.ApprovalRequest{
		StagingKey: "staging/9.png",
		PublicKey:  "public/9.png",
		ItemID:     "9",
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"staging/9.png", "public/9.png"}}, images.copies)
	require.Len(t, sheet.updates, 1)
	set := sheet.updates[0].update.Set
	assert.Equal(t, "https://public.example/public/9.png", set["imageUrl"])
	assert.Equal(t, "public/9.png", set["publicKey"])
	assert.Equal(t, "A honeyed Speyside dram", set["description"])
	assert.Equal(t, "Approved", set["aiStatus"])
	assert.Equal(t, "2025-03-01T12:00:00.000Z", set["updatedAt"])
	assert.Equal(t, 1, generator.calls)
}

func TestApprove_SkipsCopyWithoutKeys(t *testing.T) {
	row := sheetRow("9", "Published", "Approved")
	row.AiStatus = string(domain.AiStatusNeedsReview)
	service, sheet, images, generator := newApprovalFixture(row)

	err := service.Approve(context.Background(), &domain.ApprovalRequest{ItemID: "9"})
	require.NoError(t, err)

	assert.Empty(t, images.copies)
	require.Len(t, sheet.updates, 1)
	assert.NotContains(t, sheet.updates[0].update.Set, "imageUrl")
	assert.Equal(t, 1, generator.calls)
}

func TestApprove_NoChangesSkipsUpdate(t *testing.T) {
	service, sheet, _, generator := newApprovalFixture(sheetRow("9", "Published", "Approved"))

	err := service.Approve(context.Background(), &domain.ApprovalRequest{ItemID: "9"})
	require.NoError(t, err)

	assert.Empty(t, sheet.updates)
	assert.Equal(t, 1, generator.calls, "menu is regenerated even without row changes")
}

func TestApprove_UnknownItem(t *testing.T) {
	service, sheet, _, generator := newApprovalFixture()

	err := service.Approve(context.Background(), &domain.ApprovalRequest{ItemID: "nope"})
	require.NoError(t, err)

	assert.Empty(t, sheet.updates)
	assert.Equal(t, 1, generator.calls)
}

func TestApprove_CopyFailure(t *testing.T) {
	service, sheet, images, generator := newApprovalFixture(sheetRow("9", "Published", "Approved"))
	images.copyError = errors.New("NoSuchKey")

	err := service.Approve(context.Background(), &domain.ApprovalRequest{
		StagingKey: "staging/9.png",
		PublicKey:  "public/9.png",
		ItemID:     "9",
	})

	assert.Error(t, err)
	assert.Empty(t, sheet.updates)
	assert.Zero(t, generator.calls)
}

func TestApprove_NilRequest(t *testing.T) {
	service, _, _, _ := newApprovalFixture()
	assert.ErrorIs(t, service.Approve(context.Background(), nil), domain.ErrInvalidRequest)
}
