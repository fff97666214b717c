package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	apierrors "github.com/hrygo/rivalchat/server/internal/errors"
	"github.com/hrygo/rivalchat/server/internal/observability"
	"github.com/hrygo/rivalchat/store"
)

type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Session   *roleplay.Session
	Completer roleplay.Completer
	Metrics   *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, session *roleplay.Session, completer roleplay.Completer) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     store,
		Session:   session,
		Completer: completer,
		Metrics:   observability.NewMetrics(1000),
	}
}

// RegisterRoutes mounts every /api/v1 route on the echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	api := echoServer.Group("/api/v1", middlewares...)

	api.GET("/config", s.GetConfig)
	api.GET("/settings/api", s.GetAPISettings)
	api.PUT("/settings/api", s.UpdateAPISettings)
	api.DELETE("/settings/api", s.DeleteAPISettings)

	api.POST("/completions/chat", s.CompleteChat)
	api.POST("/personas/generate", s.GeneratePersona)

	api.GET("/personas", s.GetPersonas)
	api.POST("/personas/regenerate", s.RegeneratePersonas)
	api.GET("/reveal", s.Reveal)

	api.GET("/threads", s.ListThreads)
	api.GET("/threads/:mode", s.GetThread)
	api.POST("/threads/:mode/messages", s.SendMessage)

	api.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// credentialRequest is embedded by every request body that may carry caller credentials.
type credentialRequest struct {
	APIKey string `json:"apiKey"`
	APIURL string `json:"apiUrl"`
	Model  string `json:"model"`
}

func (r credentialRequest) credentials() ai.Credentials {
	return ai.Credentials{APIKey: r.APIKey, APIURL: r.APIURL, Model: r.Model}
}

func requestContext(c echo.Context, mode string) *observability.RequestContext {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		if mode != "" {
			rc.ChatMode = mode
		}
		return rc
	}
	rc := observability.NewRequestContextWithID(slog.Default(), c.Response().Header().Get(echo.HeaderXRequestID), mode)
	c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), rc)))
	return rc
}

// writeError maps err onto its status and the {error, code} body.
func writeError(c echo.Context, rc *observability.RequestContext, err error) error {
	apiErr := apierrors.FromError(err)
	status := apiErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		rc.Error("request failed", err, slog.String(observability.LogFieldErrorCode, string(apiErr.Code)))
	} else {
		rc.Warn("request rejected", slog.String(observability.LogFieldErrorCode, string(apiErr.Code)), slog.String("error", err.Error()))
	}
	return c.JSON(status, apiErr.Response())
}

func bindError(err error) error {
	return apierrors.InvalidArgument("invalid request body: " + err.Error())
}
