package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// Completion model parameters for the nightly run
const (
	completionMaxTokens   = 1024
	completionTemperature = 0.3
)

var jsonFencePattern = regexp.MustCompile("(?is)```json\\s*(.+?)```")

const completionPromptTemplate = `以下のウイスキー情報を補完してください。不明な値は推定で構いませんが、実在しそうな内容にしてください。
回答は次の JSON スキーマに従った JSON のみを返してください。

{
  "name": "商品名",
  "maker": "メーカー名",
  "category": "カテゴリ",
  "description": "50〜80文字程度の説明",
  "tags": ["3〜5個の味わいタグ"],
  "country": "生産国",
  "type": "タイプ",
  "maturationPeriod": "熟成年数",
  "caskType": "熟成樽",
  "alcoholVolume": "度数 (数値)",
  "imageUrl": "画像URL",
  "imageAlt": "画像説明文"
}

既存の値:
%s
`

// NightlyResult summarizes a nightly completion run
type NightlyResult struct {
	Processed  int `json:"processed"`
	Saved      int `json:"saved"`
	Failed     int `json:"failed"`
	Reconciled int `json:"reconciled"`
}

// CompletionService fills missing item details with the text model and
// queues them for review.
type CompletionService struct {
	sheet     domain.SheetRepository
	images    domain.ImageStore
	generator domain.TextGenerator
	now       func() time.Time
}

// NewCompletionService creates a new completion service with dependencies
func NewCompletionService(
	sheet domain.SheetRepository,
	images domain.ImageStore,
	generator domain.TextGenerator,
) *CompletionService {
	return &CompletionService{
		sheet:     sheet,
		images:    images,
		generator: generator,
		now:       time.Now,
	}
}

// RunNightly asks the model for suggestions on every row that is not yet
// approved, then repairs image URLs that drifted from their public key.
func (s *CompletionService) RunNightly(ctx context.Context) (*NightlyResult, error) {
	log := logging.Ctx(ctx).With().Str("component", "nightly").Logger()

	rows, err := s.sheet.ListRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheet rows: %w", err)
	}

	result := &NightlyResult{}
	for i := range rows {
		row := &rows[i]
		if row.AiStatus == string(domain.AiStatusApproved) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		if err := s.completeRow(ctx, row); err != nil {
			result.Failed++
			log.Error().Err(err).Str("id", row.ID).Msg("completion failed")
			continue
		}
		result.Saved++
	}

	reconciled, err := s.reconcile(ctx, rows)
	result.Reconciled = reconciled
	if err != nil {
		return result, err
	}

	log.Info().
		Int("processed", result.Processed).
		Int("saved", result.Saved).
		Int("failed", result.Failed).
		Int("reconciled", result.Reconciled).
		Msg("nightly completion finished")
	return result, nil
}

func (s *CompletionService) completeRow(ctx context.Context, row *domain.SheetRow) error {
	if row.ID == "" {
		return fmt.Errorf("%w: row without id", domain.ErrInvalidRequest)
	}

	prompt, err := BuildCompletionPrompt(row)
	if err != nil {
		return err
	}

	text, err := s.generator.Complete(ctx, prompt, domain.CompletionOptions{
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCompletionFailure, err)
	}

	suggestion, err := ParseModelJSON(text)
	if err != nil {
		return err
	}

	update := domain.SheetUpdate{
		Set: map[string]any{
			"aiStatus":  string(domain.AiStatusNeedsReview),
			"updatedAt": s.now().UTC().Format(isoMillis),
		},
	}
	if description, ok := suggestion["description"].(string); ok && strings.TrimSpace(description) != "" {
		update.Set["aiSuggestedDescription"] = strings.TrimSpace(description)
	}
	if imageURL, ok := suggestion["imageUrl"].(string); ok && strings.TrimSpace(imageURL) != "" {
		update.Set["aiSuggestedImageUrl"] = strings.TrimSpace(imageURL)
	}

	key := row.Key
	if key.PK == "" || key.SK == "" {
		key = domain.NewSheetKey(row.ID)
	}
	if err := s.sheet.Update(ctx, key, update); err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// reconcile points imageUrl at the canonical public URL for rows that have a
// public key but a stale URL.
func (s *CompletionService) reconcile(ctx context.Context, rows []domain.SheetRow) (int, error) {
	var errs []error
	updated := 0
	for i := range rows {
		row := &rows[i]
		if row.ID == "" || row.PublicKey == "" || row.ImageURL == "" {
			continue
		}
		want := s.images.PublicURL(row.PublicKey)
		if row.ImageURL == want {
			continue
		}

		key := row.Key
		if key.PK == "" || key.SK == "" {
			key = domain.NewSheetKey(row.ID)
		}
		update := domain.SheetUpdate{Set: map[string]any{"imageUrl": want}}
		if err := s.sheet.Update(ctx, key, update); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", row.ID, err))
			continue
		}
		updated++
	}
	return updated, errors.Join(errs...)
}

// Suggestions lists the pending AI suggestions awaiting review
func (s *CompletionService) Suggestions(ctx context.Context) ([]domain.AiSuggestion, error) {
	rows, err := s.sheet.ListRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheet rows: %w", err)
	}

	suggestions := make([]domain.AiSuggestion, 0, len(rows))
	for _, row := range rows {
		if row.AiStatus == string(domain.AiStatusApproved) {
			continue
		}
		status := row.AiStatus
		if status == "" {
			status = string(domain.AiStatusNone)
		}
		suggestions = append(suggestions, domain.AiSuggestion{
			ID:                     row.ID,
			AiSuggestedDescription: optionalString(row.AiSuggestedDescription),
			AiSuggestedImageURL:    optionalString(row.AiSuggestedImageURL),
			AiStatus:               status,
		})
	}
	return suggestions, nil
}

// BuildCompletionPrompt renders the completion prompt for a sheet row
func BuildCompletionPrompt(row *domain.SheetRow) (string, error) {
	existing, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode row: %w", err)
	}
	return fmt.Sprintf(completionPromptTemplate, existing), nil
}

// ParseModelJSON decodes a JSON object from a model reply, unwrapping a
// ```json fenced block when present.
func ParseModelJSON(text string) (map[string]any, error) {
	body := text
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		body = m[1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &out); err != nil {
		return nil, fmt.Errorf("%w: model reply is not valid JSON: %w", domain.ErrCompletionFailure, err)
	}
	return out, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
