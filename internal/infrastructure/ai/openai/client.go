// Package openai provides an OpenAI chat-completions ranking provider.
// Any OpenAI-compatible endpoint works through Config.BaseURL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mealprep/recommender/internal/infrastructure/ai/prompt"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// maxResponseBytes caps how much of a OpenAI response is read
const maxResponseBytes = 4 << 20

// Config configures the client
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements outbound.RankingProvider using the OpenAI API
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

var _ outbound.RankingProvider = (*Client)(nil)

// NewClient creates a new OpenAI client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.APIKey == "" {
		logger.Warn("OpenAI API key not configured, provider will report unavailable")
	} else {
		logger.Info("OpenAI client initialized", zap.String("model", cfg.Model))
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("openai-client"),
	}
}

// OpenAI API structures
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return string(outbound.ProviderOpenAI)
}

// HealthCheck lists models to verify the key and endpoint
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("openai api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// IsAvailable reports whether HealthCheck passes
func (c *Client) IsAvailable(ctx context.Context) bool {
	if err := c.HealthCheck(ctx); err != nil {
		c.logger.Debug("OpenAI unavailable", zap.Error(err))
		return false
	}
	return true
}

// Rank asks the model to rank the offered candidates
func (c *Client) Rank(ctx context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	content, err := c.callOpenAI(ctx, prompt.System, prompt.User(req))
	if err != nil {
		return nil, err
	}

	items, rejected, err := prompt.Parse(content)
	if err != nil {
		c.logger.Warn("Failed to parse OpenAI ranking",
			zap.Error(err),
			zap.String("response", content[:min(len(content), 500)]))
		return nil, apperrors.NewExternalServiceError(c.Name(), err)
	}
	if rejected > 0 {
		c.logger.Warn("OpenAI returned unparseable recipe ids", zap.Int("rejected", rejected))
	}
	return items, nil
}

// callOpenAI makes the chat completion call in JSON mode
func (c *Client) callOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewExternalServiceError(c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", apperrors.NewExternalServiceError(c.Name(), err)
	}
	if len(body) > maxResponseBytes {
		return "", apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("response body exceeds %d bytes", maxResponseBytes))
	}

	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body[:min(len(body), 300)])))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", apperrors.NewExternalServiceError(c.Name(), cause).WithMetadata("status", resp.StatusCode)
		}
		return "", apperrors.NewAppError(apperrors.CodeBadRequest, "Ranking request rejected", c.Name()).
			WithCause(cause).
			WithMetadata("status", resp.StatusCode)
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("no response choices returned"))
	}

	c.logger.Debug("OpenAI API call successful",
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
	)

	return chatResp.Choices[0].Message.Content, nil
}
