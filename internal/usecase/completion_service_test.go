package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompletionFixture(rows ...domain.SheetRow) (*CompletionService, *MockSheetRepository, *MockTextGenerator) {
	sheet := NewMockSheetRepository(rows...)
	generator := &MockTextGenerator{}
	service := NewCompletionService(sheet, &MockImageStore{}, generator)
	service.now = func() time.Time { return fixedNow }
	return service, sheet, generator
}

func TestRunNightly_SavesSuggestions(t *testing.T) {
	approved := sheetRow("1", "Published", "Approved")
	pending := sheetRow("2", "Draft", "-")
	pending.AiStatus = ""
	service, sheet, generator := newCompletionFixture(approved, pending)
	generator.replies = []string{"Here you go:\n```json\n{\"description\": \"  Vanilla and oak  \", \"imageUrl\": \"https://img/2.png\"}\n```"}

	result, err := service.RunNightly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &NightlyResult{Processed: 1, Saved: 1}, result)
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], `"id": "2"`)
	assert.Equal(t, domain.CompletionOptions{MaxTokens: 1024, Temperature: 0.3}, generator.opts[0])

	require.Len(t, sheet.updates, 1)
	call := sheet.updates[0]
	assert.Equal(t, domain.NewSheetKey("2"), call.key)
	assert.Equal(t, "Vanilla and oak", call.update.Set["aiSuggestedDescription"])
	assert.Equal(t, "https://img/2.png", call.update.Set["aiSuggestedImageUrl"])
	assert.Equal(t, "NeedsReview", call.update.Set["aiStatus"])
}

func TestRunNightly_FailuresAreCounted(t *testing.T) {
	a := sheetRow("a", "Draft", "-")
	a.AiStatus = "None"
	b := sheetRow("b", "Draft", "-")
	b.AiStatus = "Rejected"
	service, sheet, generator := newCompletionFixture(a, b)
	generator.replies = []string{"I cannot help with that", `{"description": "ok"}`}

	result, err := service.RunNightly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, sheet.updates, 1)
	assert.Equal(t, domain.NewSheetKey("b"), sheet.updates[0].key)
}

func TestRunNightly_ModelError(t *testing.T) {
	row := sheetRow("a", "Draft", "-")
	row.AiStatus = "None"
	service, _, generator := newCompletionFixture(row)
	generator.err = errors.New("access denied")

	result, err := service.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
}

func TestRunNightly_ReconcilesImageURLs(t *testing.T) {
	stale := sheetRow("1", "Published", "Approved")
	stale.PublicKey = "public/1.png"
	stale.ImageURL = "https://old-bucket/1.png"
	fresh := sheetRow("2", "Published", "Approved")
	fresh.PublicKey = "public/2.png"
	fresh.ImageURL = "https://public.example/public/2.png"
	service, sheet, _ := newCompletionFixture(stale, fresh)

	result, err := service.RunNightly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reconciled)
	require.Len(t, sheet.updates, 1)
	assert.Equal(t, "https://public.example/public/1.png", sheet.updates[0].update.Set["imageUrl"])
}

func TestRunNightly_ListFailure(t *testing.T) {
	service, sheet, _ := newCompletionFixture()
	sheet.listError = errors.New("dynamo down")

	_, err := service.RunNightly(context.Background())
	assert.Error(t, err)
}

func TestSuggestions(t *testing.T) {
	approved := sheetRow("1", "Published", "Approved")
	review := sheetRow("2", "Draft", "-")
	review.AiStatus = "NeedsReview"
	review.AiSuggestedDescription = "Spicy rye"
	blank := sheetRow("3", "Draft", "-")
	blank.AiStatus = ""
	service, _, _ := newCompletionFixture(approved, review, blank)

	suggestions, err := service.Suggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "2", suggestions[0].ID)
	require.NotNil(t, suggestions[0].AiSuggestedDescription)
	assert.Equal(t, "Spicy rye", *suggestions[0].AiSuggestedDescription)
	assert.Nil(t, suggestions[0].AiSuggestedImageURL)
	assert.Equal(t, "NeedsReview", suggestions[0].AiStatus)

	assert.Equal(t, "3", suggestions[1].ID)
	assert.Nil(t, suggestions[1].AiSuggestedDescription)
	assert.Equal(t, "None", suggestions[1].AiStatus)
}

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"plain", `{"description":"x"}`, "x", false},
		{"fenced", "```json\n{\"description\":\"y\"}\n```", "y", false},
		{"fenced uppercase", "prefix ```JSON {\"description\":\"z\"}``` suffix", "z", false},
		{"garbage", "no json here", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelJSON(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrCompletionFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got["description"])
		})
	}
}

func TestBuildCompletionPrompt(t *testing.T) {
	prompt, err := BuildCompletionPrompt(&domain.SheetRow{ID: "7", Name: "Yoichi"})
	require.NoError(t, err)

	assert.True(t, strings.Contains(prompt, `"name": "Yoichi"`))
	assert.Contains(t, prompt, `"imageUrl"`)
}
