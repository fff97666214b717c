package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Completion tunables.
const (
	ChatTemperature       float32 = 0.85
	ChatMaxTokens                 = 200
	GenerationTemperature float32 = 0.9
	// GenerationMaxTokens of zero omits max_tokens from the request.
	GenerationMaxTokens = 0
)

// CompletionRequest is one call to an OpenAI-compatible chat completion endpoint.
type CompletionRequest struct {
	// Endpoint is the full URL the request is posted to, used verbatim.
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	History      []Message
	Temperature  float32
	MaxTokens    int
}

// CompletionClient performs single synchronous completions. It never retries.
type CompletionClient struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewCompletionClient creates a client whose calls are bounded by timeout. Zero disables the bound.
func NewCompletionClient(timeout time.Duration) *CompletionClient {
	return &CompletionClient{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// endpointDoer posts every request to the configured endpoint instead of BaseURL + "/chat/completions".
type endpointDoer struct {
	endpoint *url.URL
	client   *http.Client
}

func (d *endpointDoer) Do(req *http.Request) (*http.Response, error) {
	target := *d.endpoint
	req.URL = &target
	req.Host = target.Host
	return d.client.Do(req)
}

// Complete sends the system prompt followed by the history and returns the trimmed reply text.
func (c *CompletionClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	endpoint, err := validateRequest(req)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := openai.DefaultConfig(req.APIKey)
	config.BaseURL = strings.TrimSuffix(req.Endpoint, "/")
	config.HTTPClient = &endpointDoer{endpoint: endpoint, client: c.httpClient}
	client := openai.NewClientWithConfig(config)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    convertMessages(FormatMessages(req.SystemPrompt, req.History)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		classified := classifyError(err)
		slog.Warn("completion failed",
			"host", endpoint.Host,
			"model", req.Model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", classified,
		)
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "no choices"}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &MalformedResponseError{Reason: "empty reply content"}
	}

	slog.Debug("completion succeeded",
		"host", endpoint.Host,
		"model", req.Model,
		"history", len(req.History),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func validateRequest(req *CompletionRequest) (*url.URL, error) {
	if req == nil {
		return nil, &ConfigError{Field: "request", Reason: "is nil"}
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		return nil, &ConfigError{Field: "apiUrl"}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, &ConfigError{Field: "apiKey"}
	}
	endpoint, err := url.Parse(strings.TrimSpace(req.Endpoint))
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, &ConfigError{Field: "apiUrl", Reason: "is not an absolute URL"}
	}
	return endpoint, nil
}

// classifyError maps go-openai failures onto the completion error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: Truncate(apiErr.Message), Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: Truncate(string(reqErr.Body)), Cause: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &UpstreamError{StatusCode: 0, Cause: err}
	}
	return &MalformedResponseError{Reason: "cannot decode response", Cause: err}
}
