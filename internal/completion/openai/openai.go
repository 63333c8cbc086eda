package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"vectorchat/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"

	providerName = "openai"
)

// Config configures the chat completions client. APIKey is required.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *log.Logger
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *log.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(domain.ErrConfiguration, "openai chat: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the whole history and returns the first choice's content.
// A response without content is an error.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", domain.NewProviderError(providerName, "chat", errors.Wrap(err, "encode request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.NewProviderError(providerName, "chat", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.NewProviderError(providerName, "chat", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewProviderError(providerName, "chat", errors.Wrap(err, "read response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewStatusError(providerName, "chat", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", domain.NewProviderError(providerName, "chat", errors.Wrap(err, "decode response"))
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", domain.NewProviderError(providerName, "chat", errors.New("no content in response"))
	}

	c.logger.Debug("chat completion", "model", c.model, "messages", len(messages))
	return *out.Choices[0].Message.Content, nil
}
