// Package gemini provides a Google Gemini ranking provider
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mealprep/recommender/internal/infrastructure/ai/prompt"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

var errNoContent = errors.New("no content generated")

// Config configures the client
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client implements outbound.RankingProvider using the Gemini API
type Client struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
	logger  *zap.Logger
}

var _ outbound.RankingProvider = (*Client)(nil)

// NewClient creates a new Gemini API client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}

	logger.Info("Gemini client initialized", zap.String("model", cfg.Model))

	return &Client{
		client:  client,
		model:   model,
		name:    cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("gemini-client"),
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return string(outbound.ProviderGemini)
}

// IsAvailable is true once the client is configured. Liveness of the
// remote API is tracked by the resilient wrapper.
func (c *Client) IsAvailable(context.Context) bool {
	return c.client != nil && c.model != nil
}

// Rank asks the model to rank the offered candidates
func (c *Client) Rank(ctx context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt.User(req)))
	if err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to generate content: %w", err))
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(c.Name(), err)
	}

	items, rejected, err := prompt.Parse(text)
	if err != nil {
		c.logger.Warn("Failed to parse Gemini ranking",
			zap.Error(err),
			zap.String("response", text[:min(len(text), 500)]))
		return nil, apperrors.NewExternalServiceError(c.Name(), err)
	}
	if rejected > 0 {
		c.logger.Warn("Gemini returned unparseable recipe ids", zap.Int("rejected", rejected))
	}
	return items, nil
}

// Close closes the underlying Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errNoContent
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", errNoContent
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("generated content is not text")
	}
	return b.String(), nil
}
