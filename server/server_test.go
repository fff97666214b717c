package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db/memory"
)

func newTestServer(t *testing.T, p *profile.Profile) *Server {
	t.Helper()
	ctx := context.Background()
	s := store.New(memory.NewDB(), p)
	require.NoError(t, s.Migrate(ctx))

	completer := ai.NewCompletionClient(p.CompletionTimeout)
	session := roleplay.NewSession(roleplay.SessionConfig{
		Store:     s,
		Completer: completer,
		Renderer:  roleplay.NewPromptRenderer(nil),
		Defaults:  ai.NewDefaultsFromProfile(p),
	})
	srv, err := NewServer(ctx, p, s, session, completer)
	require.NoError(t, err)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &profile.Profile{Mode: "prod", Driver: "memory", RateLimit: 100, RateBurst: 100})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service ready.", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestAPIRateLimited(t *testing.T) {
	srv := newTestServer(t, &profile.Profile{Mode: "prod", Driver: "memory", RateLimit: 0.001, RateBurst: 1})

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
		return rec
	}
	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"hasApiKey":false,"hasApiUrl":false,"hasModel":false}`, first.Body.String())
	second := do()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMIT_EXCEEDED")

	// Liveness is never limited.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSendWithoutCredentialsIsConfigError(t *testing.T) {
	p := &profile.Profile{Mode: "prod", Driver: "memory", RateLimit: 100, RateBurst: 100}
	srv := newTestServer(t, p)
	persona := func(id string) *store.Persona {
		return &store.Persona{ID: id, Name: id, Hobbies: []string{"高尔夫"}}
	}
	require.NoError(t, srv.Store.SetPersonas(context.Background(), &store.PersonaPair{A: persona("a"), B: persona("b")}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/threads/privateA/messages", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIG_MISSING")
}

func TestErrorDetailsOnlyInDev(t *testing.T) {
	tests := []struct {
		mode   string
		detail bool
	}{
		{mode: "prod", detail: false},
		{mode: "dev", detail: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			srv := newTestServer(t, &profile.Profile{Mode: tt.mode, Driver: "memory", RateLimit: 100, RateBurst: 100})
			assert.Equal(t, tt.detail, srv.echoServer.Debug)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tt.detail, strings.Contains(rec.Body.String(), `"error"`), rec.Body.String())
		})
	}
}
