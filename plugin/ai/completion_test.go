package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func chatRequest(endpoint string) *CompletionRequest {
	return &CompletionRequest{
		Endpoint:     endpoint,
		APIKey:       "sk-test",
		Model:        "gpt-4",
		SystemPrompt: "你是Kevin",
		History: []Message{
			UserMessage("大家好"),
			AssistantMessage("你好呀"),
		},
		Temperature: ChatTemperature,
		MaxTokens:   ChatMaxTokens,
	}
}

func writeReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
}

func TestCompleteSuccess(t *testing.T) {
	var body map[string]any
	var path, auth string
	server, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeReply(w, "  说白了，格局要大。 \n")
	})

	client := NewCompletionClient(time.Second)
	text, err := client.Complete(context.Background(), chatRequest(server.URL+"/custom/v1/chat"))
	require.NoError(t, err)

	assert.Equal(t, "说白了，格局要大。", text)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "/custom/v1/chat", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4", body["model"])
	assert.InDelta(t, 0.85, body["temperature"], 1e-6)
	assert.Equal(t, float64(200), body["max_tokens"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 3)
	roles := []string{}
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant"}, roles)
	assert.Equal(t, "你是Kevin", messages[0].(map[string]any)["content"])
}

func TestCompleteOmitsMaxTokensForGeneration(t *testing.T) {
	var body map[string]any
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeReply(w, "{}")
	})

	req := chatRequest(server.URL)
	req.Temperature = GenerationTemperature
	req.MaxTokens = GenerationMaxTokens
	_, err := NewCompletionClient(0).Complete(context.Background(), req)
	require.NoError(t, err)

	_, hasMaxTokens := body["max_tokens"]
	assert.False(t, hasMaxTokens)
	assert.InDelta(t, 0.9, body["temperature"], 1e-6)
}

func TestCompleteUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "plain text error body",
			status:     http.StatusInternalServerError,
			body:       "rate limited",
			wantStatus: http.StatusInternalServerError,
			wantBody:   "rate limited",
		},
		{
			name:       "openai error document",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid api key",
		},
		{
			name:       "long body is truncated",
			status:     http.StatusBadGateway,
			body:       strings.Repeat("错", 500),
			wantStatus: http.StatusBadGateway,
			wantBody:   strings.Repeat("错", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewCompletionClient(time.Second).Complete(context.Background(), chatRequest(server.URL))
			var upstream *UpstreamError
			require.True(t, errors.As(err, &upstream), "got %v", err)
			assert.Equal(t, tt.wantStatus, upstream.StatusCode)
			assert.Equal(t, tt.wantBody, upstream.Body)
		})
	}
}

func TestCompleteMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no choices", body: `{"choices":[]}`},
		{name: "missing choices", body: `{"id":"x"}`},
		{name: "empty content", body: `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`},
		{name: "not json", body: `<html>gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewCompletionClient(time.Second).Complete(context.Background(), chatRequest(server.URL))
			var malformed *MalformedResponseError
			assert.True(t, errors.As(err, &malformed), "got %v", err)
		})
	}
}

func TestCompleteConfigErrorMakesNoCall(t *testing.T) {
	server, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, "unexpected")
	})

	tests := []struct {
		name   string
		mutate func(*CompletionRequest)
		field  string
	}{
		{name: "missing key", mutate: func(r *CompletionRequest) { r.APIKey = "" }, field: "apiKey"},
		{name: "blank key", mutate: func(r *CompletionRequest) { r.APIKey = "  " }, field: "apiKey"},
		{name: "missing endpoint", mutate: func(r *CompletionRequest) { r.Endpoint = "" }, field: "apiUrl"},
		{name: "relative endpoint", mutate: func(r *CompletionRequest) { r.Endpoint = "/v1/chat/completions" }, field: "apiUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := chatRequest(server.URL)
			tt.mutate(req)
			_, err := NewCompletionClient(time.Second).Complete(context.Background(), req)
			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "got %v", err)
			assert.Equal(t, tt.field, configErr.Field)
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestCompleteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := NewCompletionClient(time.Second).Complete(context.Background(), chatRequest(endpoint))
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream), "got %v", err)
	assert.Equal(t, 0, upstream.StatusCode)
}

func TestCompleteTimeout(t *testing.T) {
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, err := NewCompletionClient(50*time.Millisecond).Complete(context.Background(), chatRequest(server.URL))
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream), "got %v", err)
	assert.Equal(t, 0, upstream.StatusCode)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFormatMessages(t *testing.T) {
	history := []Message{UserMessage("hi")}
	assert.Equal(t, []Message{SystemPrompt("sys"), UserMessage("hi")}, FormatMessages("sys", history))
	assert.Equal(t, history, FormatMessages("", history))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))
	assert.Equal(t, 200, len([]rune(Truncate(strings.Repeat("油", 201)))))
}
