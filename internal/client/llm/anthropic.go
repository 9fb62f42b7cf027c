// Package llm wraps the Anthropic Messages API for single-turn completions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/"
	DefaultModel   = "claude-sonnet-4-20250514"
)

var (
	ErrNoAPIKey     = errors.New("llm: api key not set")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrRateLimit    = errors.New("llm: rate limited")
)

// Completion is the text reply plus the usage needed for cost accounting.
type Completion struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
	client     anthropic.Client
}

type Option func(*AnthropicClient)

func WithModel(model string) Option {
	return func(c *AnthropicClient) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithBaseURL takes the API root; a trailing /v1 is dropped because the SDK adds it.
func WithBaseURL(url string) Option {
	return func(c *AnthropicClient) {
		url = strings.TrimRight(strings.TrimSpace(url), "/")
		url = strings.TrimSuffix(url, "/v1")
		if url != "" {
			c.baseURL = url + "/"
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *AnthropicClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *AnthropicClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *AnthropicClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewAnthropicClient(apiKey string, opts ...Option) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	c := &AnthropicClient{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		maxTokens: 2048,
		timeout:   90 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	// A failed call is a failed cycle; the next scheduled run is the retry.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithRequestTimeout(c.timeout),
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}
	c.client = anthropic.NewClient(reqOpts...)
	return c, nil
}

func (c *AnthropicClient) Model() string { return c.model }

// Complete sends one system + user turn and returns the concatenated text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (Completion, error) {
	if c == nil {
		return Completion{}, ErrNoAPIKey
	}
	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, mapError(err)
	}
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return Completion{
		Text:         strings.Join(parts, ""),
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Latency:      time.Since(start),
	}, nil
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch code := apiErr.StatusCode; {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrNoAPIKey, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %v", ErrProviderDown, code, err)
	default:
		return fmt.Errorf("llm: status %d: %w", code, err)
	}
}
