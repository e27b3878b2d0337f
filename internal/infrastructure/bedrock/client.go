package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
	"golang.org/x/time/rate"
)

const (
	contentTypeJSON  = "application/json"
	anthropicVersion = "bedrock-2023-05-31"
)

// allowedModelPrefixes lists the model families this service has been run against
var allowedModelPrefixes = []string{
	"anthropic.claude-3-haiku",
	"anthropic.claude-3-sonnet",
	"amazon.titan-embed-text",
}

// InvokeModelAPI is the subset of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds the Bedrock model selection
type Config struct {
	EmbeddingModel    string
	TextModel         string
	RequestsPerSecond float64
}

// Client invokes Bedrock embedding and text models
type Client struct {
	api            InvokeModelAPI
	embeddingModel string
	textModel      string
	rateLimiter    *rate.Limiter
}

// NewClient creates a new Bedrock client. Model ids are checked against the
// known families; unknown ids are allowed but logged.
func NewClient(api InvokeModelAPI, cfg Config) (*Client, error) {
	if err := ValidateModelID(cfg.EmbeddingModel); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	if cfg.TextModel != "" {
		if err := ValidateModelID(cfg.TextModel); err != nil {
			return nil, fmt.Errorf("text model: %w", err)
		}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		api:            api,
		embeddingModel: cfg.EmbeddingModel,
		textModel:      cfg.TextModel,
		rateLimiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// ValidateModelID rejects empty ids and warns about unknown model families
func ValidateModelID(modelID string) error {
	if strings.TrimSpace(modelID) == "" {
		return fmt.Errorf("%w: model id is empty", domain.ErrInvalidRequest)
	}
	for _, prefix := range allowedModelPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return nil
		}
	}
	logging.Warn().Str("component", "bedrock").Str("model_id", modelID).Msg("model id is not in the known list")
	return nil
}

type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// EmbedText implements domain.Embedder with a Titan text embedding model
func (c *Client) EmbedText(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(titanEmbeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	raw, err := c.invoke(ctx, c.embeddingModel, body)
	if err != nil {
		return nil, err
	}

	var resp titanEmbeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingFailure)
	}
	return resp.Embedding, nil
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// Complete implements domain.TextGenerator with a Claude messages model
func (c *Client) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	if c.textModel == "" {
		return "", fmt.Errorf("%w: text model is not configured", domain.ErrCompletionFailure)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      opts.Temperature,
		Messages: []claudeMessage{{
			Role:    "user",
			Content: []claudeContent{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	raw, err := c.invoke(ctx, c.textModel, body)
	if err != nil {
		return "", err
	}

	var resp claudeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	parts := make([]string, 0, len(resp.Content))
	for _, content := range resp.Content {
		if content.Text != "" {
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Client) invoke(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("component", "bedrock").Str("model_id", modelID).Msg("invoke failed")
		return nil, classifyError(modelID, err)
	}
	return out.Body, nil
}

// classifyError maps Bedrock API error codes onto domain errors
func classifyError(modelID string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException":
			return fmt.Errorf("%w: %s: %w", domain.ErrModelAccessDenied, modelID, err)
		case "ThrottlingException", "ServiceUnavailableException", "ModelTimeoutException", "ModelNotReadyException":
			return fmt.Errorf("%w: %s: %w", domain.ErrModelThrottled, modelID, err)
		}
	}
	return fmt.Errorf("bedrock %s: %w", modelID, err)
}
