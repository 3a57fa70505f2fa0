package generator

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/ideaforge/internal/errors"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 120 * time.Second

// Options configures an OpenAI client.
type Options struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout (tests).
	HTTPClient *http.Client
}

// OpenAI implements Generator for the Chat Completions API and any server
// speaking the same wire format.
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewOpenAI builds a client. A missing API key is not an error here; it is
// reported as a CONFIG error on the first Generate call.
func NewOpenAI(opts Options) *OpenAI {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		httpClient: client,
		baseURL:    baseURL,
		model:      model,
		apiKey:     opts.APIKey,
	}
}

// Model returns the configured model name.
func (c *OpenAI) Model() string {
	return c.model
}

// Generate sends req and returns the first choice's content, trimmed.
func (c *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", errors.NewConfig("OPENAI_API_KEY missing; set it in .env or the environment")
	}

	httpResponse, err := c.do(ctx, c.buildRequest(req))
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewCancelled("generate")
		}
		return "", errors.NewGenerator(err)
	}
	defer httpResponse.Body.Close()

	var wire chatResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wire); err != nil {
		return "", errors.NewGenerator(fmt.Errorf("generator/openai: decoding response: %w", err))
	}
	if len(wire.Choices) == 0 {
		return "", errors.NewGenerator(fmt.Errorf("generator/openai: response has no choices"))
	}
	return strings.TrimSpace(wire.Choices[0].Message.Content), nil
}

func (c *OpenAI) buildRequest(req Request) chatRequest {
	n := req.N
	if n <= 0 {
		n = 1
	}
	wire := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           n,
	}
	if req.System != "" {
		wire.Messages = append(wire.Messages, chatMessage{Role: "system", Content: req.System})
	}
	wire.Messages = append(wire.Messages, chatMessage{Role: "user", Content: req.User})
	if req.JSON {
		wire.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return wire
}

// do POSTs wire to the completions endpoint. Non-200 responses are returned
// as *ProviderError with the body already closed.
func (c *OpenAI) do(ctx context.Context, wire chatRequest) (*http.Response, error) {
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("generator/openai: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("generator/openai: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("generator/openai: sending request: %w", err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}
	return httpResponse, nil
}

// ProviderError is returned when the API responds with a non-200 status.
type ProviderError struct {
	StatusCode int

	// Type is the provider-specific error type, e.g. "rate_limit_error".
	Type string

	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("generator: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("generator: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports an HTTP 429 response.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// AsProviderError extracts a *ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	ok := stderrors.As(err, &perr)
	return perr, ok
}

// readProviderError parses {"error":{"type":"...","message":"..."}}, falling
// back to the raw body text.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(httpResponse.StatusCode)
	}
	return &ProviderError{StatusCode: httpResponse.StatusCode, Message: message}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	N              int             `json:"n,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
