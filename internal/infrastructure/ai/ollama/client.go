// Package ollama provides Ollama integration for local AI inference.
// The client ranks candidate recipes through the chat API.
package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:3b"
)

// maxResponseBytes caps how much of a Ollama response is read
const maxResponseBytes = 4 << 20

// Config configures the client
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client implements outbound.RankingProvider using the Ollama API
type Client struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
	logger      *zap.Logger
}

var _ outbound.RankingProvider = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Ollama client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("ollama-client"),
	}
}

// Ollama API structures
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ChatResponse struct {
	Model         string      `json:"model"`
	Message       ChatMessage `json:"message"`
	Done          bool        `json:"done"`
	TotalDuration int64       `json:"total_duration,omitempty"`
	EvalCount     int         `json:"eval_count,omitempty"`
	EvalDuration  int64       `json:"eval_duration,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return string(outbound.ProviderOllama)
}

// HealthCheck verifies that Ollama is reachable and serves the model
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %s is not pulled", c.model)
}

// IsAvailable reports whether HealthCheck passes
func (c *Client) IsAvailable(ctx context.Context) bool {
	if err := c.HealthCheck(ctx); err != nil {
		c.logger.Debug("Ollama unavailable", zap.Error(err))
		return false
	}
	return true
}

// Rank asks the model to rank the offered candidates
func (c *Client) Rank(ctx context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	content, err := c.chat(ctx, prompt.System, prompt.User(req))
	if err != nil {
		return nil, err
	}

	items, rejected, err := prompt.Parse(content)
	if err != nil {
		c.logger.Warn("Failed to parse Ollama ranking",
			zap.Error(err),
			zap.String("response", content[:min(len(content), 500)]))
		return nil, apperrors.NewExternalServiceError(c.Name(), err)
	}
	if rejected > 0 {
		c.logger.Warn("Ollama returned unparseable recipe ids", zap.Int("rejected", rejected))
	}

	c.logger.Debug("Ranking received via Ollama",
		zap.String("slot", req.Slot.Key()),
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("items", len(items)))
	return items, nil
}

// chat uses Ollama's chat API in JSON mode
func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_ctx":     8192,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return "", statusError(c.Name(), resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if !chatResp.Done {
		return "", apperrors.NewExternalServiceError(c.Name(), fmt.Errorf("incomplete response from Ollama"))
	}

	c.logger.Debug("Ollama chat completion successful",
		zap.String("model", chatResp.Model),
		zap.Int64("eval_duration", chatResp.EvalDuration),
		zap.Int("eval_count", chatResp.EvalCount))

	return chatResp.Message.Content, nil
}

// statusError maps an HTTP failure: server errors and throttling are
// retryable, other client errors are not.
func statusError(provider string, status int, body []byte) error {
	cause := fmt.Errorf("API error %d: %s", status, strings.TrimSpace(string(body[:min(len(body), 300)])))
	if status >= 500 || status == http.StatusTooManyRequests {
		return apperrors.NewExternalServiceError(provider, cause).WithMetadata("status", status)
	}
	return apperrors.NewAppError(apperrors.CodeBadRequest, "Ranking request rejected", provider).
		WithCause(cause).
		WithMetadata("status", status)
}
