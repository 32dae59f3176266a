// Package gen provides the text-generation client used for plan expansion,
// session classification, and name/message generation. Each call is a single
// independent prompt with a bounded timeout; there is no streaming and no
// multi-turn state. Callers must treat the returned text as untrusted input
// and fall back deterministically when a call fails.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/taskguard/taskguard/internal/errors"
)

const (
	// anthropicAPIURL is the Anthropic Messages API endpoint.
	anthropicAPIURL = "https://api.anthropic.com/v1/messages"

	// defaultFastModel handles low-stakes generation: branch names, WIP
	// commit messages.
	defaultFastModel = "claude-3-5-haiku-latest"

	// defaultQualityModel handles plan expansion and session classification.
	defaultQualityModel = "claude-sonnet-4-20250514"

	// defaultTimeout is the API request timeout.
	defaultTimeout = 30 * time.Second

	// defaultMaxTokens bounds the response size for a single request.
	defaultMaxTokens = 2048
)

// Tier selects the model quality for a request.
type Tier int

const (
	// TierFast is for cosmetic output where latency matters more than quality.
	TierFast Tier = iota
	// TierQuality is for structured output the controller parses.
	TierQuality
)

// Result is the outcome of a single generation request.
type Result struct {
	// Text is the raw response text. Untrusted: may be wrapped in prose or
	// fenced code, may be empty.
	Text string
	// Success is false when the backend failed or returned nothing usable.
	Success bool
}

// Client defines the generation contract: prompt in, best-effort text out.
type Client interface {
	Prompt(ctx context.Context, text string, tier Tier) (Result, error)
}

// AnthropicClient implements Client using the Anthropic Messages API.
type AnthropicClient struct {
	apiKey       string
	fastModel    string
	qualityModel string
	maxTokens    int
	httpClient   *http.Client
}

// ClientOption configures an AnthropicClient.
type ClientOption func(*AnthropicClient)

// WithFastModel sets the model used for TierFast requests.
func WithFastModel(model string) ClientOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.fastModel = model
		}
	}
}

// WithQualityModel sets the model used for TierQuality requests.
func WithQualityModel(model string) ClientOption {
	return func(c *AnthropicClient) {
		if model != "" {
			c.qualityModel = model
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *AnthropicClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxTokens sets the response token budget.
func WithMaxTokens(n int) ClientOption {
	return func(c *AnthropicClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewAnthropicClient creates a new client using the ANTHROPIC_API_KEY env var.
// Returns an error if the API key is not set.
func NewAnthropicClient(opts ...ClientOption) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	c := &AnthropicClient{
		apiKey:       apiKey,
		fastModel:    defaultFastModel,
		qualityModel: defaultQualityModel,
		maxTokens:    defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// UnavailableClient is a Client whose backend cannot be reached (for
// example, no API key is configured). Every call fails with
// ErrGenerationUnavailable so callers exercise their deterministic
// fallbacks instead of crashing.
type UnavailableClient struct {
	Reason string
}

// Prompt always fails with ErrGenerationUnavailable.
func (c *UnavailableClient) Prompt(_ context.Context, _ string, _ Tier) (Result, error) {
	return Result{}, errors.NewGenerationError(c.Reason, errors.ErrGenerationUnavailable)
}

// messagesRequest is the Anthropic Messages API request structure.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic Messages API response structure.
type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Prompt sends a single prompt and returns the raw response text.
// Timeouts are surfaced as errors.ErrGenerationTimeout so callers can
// distinguish them from empty output.
func (c *AnthropicClient) Prompt(ctx context.Context, text string, tier Tier) (Result, error) {
	model := c.model(tier)

	reqBody := messagesRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Messages: []message{
			{Role: "user", Content: text},
		},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, errors.NewGenerationError("marshal request", err).WithModel(model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(reqBytes))
	if err != nil {
		return Result{}, errors.NewGenerationError("create request", err).WithModel(model)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) || ctx.Err() == context.DeadlineExceeded {
			return Result{}, errors.NewGenerationError("request timed out", errors.ErrGenerationTimeout).WithModel(model)
		}
		return Result{}, errors.NewGenerationError("send request", errors.ErrGenerationUnavailable).WithModel(model)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errors.NewGenerationError("read response", err).WithModel(model)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, errors.NewGenerationError(
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)), nil).WithModel(model)
	}

	var respData messagesResponse
	if err := json.Unmarshal(body, &respData); err != nil {
		return Result{}, errors.NewGenerationError("unmarshal response", errors.ErrMalformedResponse).WithModel(model)
	}

	if respData.Error != nil {
		return Result{}, errors.NewGenerationError("API error: "+respData.Error.Message, nil).WithModel(model)
	}

	if len(respData.Content) == 0 {
		return Result{Success: false}, nil
	}

	text = strings.TrimSpace(respData.Content[0].Text)
	return Result{Text: text, Success: text != ""}, nil
}

// model maps a tier to the configured model identifier.
func (c *AnthropicClient) model(tier Tier) string {
	if tier == TierQuality {
		return c.qualityModel
	}
	return c.fastModel
}

// isTimeout reports whether an HTTP client error was caused by a timeout.
func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

var _ Client = (*AnthropicClient)(nil)
