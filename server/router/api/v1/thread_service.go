package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/plugin/ai/timeout"
	apierrors "github.com/hrygo/rivalchat/server/internal/errors"
	"github.com/hrygo/rivalchat/server/internal/observability"
	"github.com/hrygo/rivalchat/store"
)

// ListThreads returns the chat list: both private threads, then the group.
// GET /api/v1/threads
func (s *APIV1Service) ListThreads(c echo.Context) error {
	rc := requestContext(c, "")
	summaries, err := s.Store.ListThreadSummaries(c.Request().Context())
	if err != nil {
		return writeError(c, rc, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetThread returns every message of one thread in append order.
// GET /api/v1/threads/:mode
func (s *APIV1Service) GetThread(c echo.Context) error {
	rc := requestContext(c, c.Param("mode"))
	mode, err := store.ParseChatMode(c.Param("mode"))
	if err != nil {
		return writeError(c, rc, apierrors.InvalidArgument(err.Error()))
	}
	thread, err := s.Store.GetThread(c.Request().Context(), mode)
	if err != nil {
		return writeError(c, rc, err)
	}
	return c.JSON(http.StatusOK, thread)
}

type SendMessageRequest struct {
	credentialRequest
	Content string `json:"content"`
}

// SendMessageResponse carries Error and Code when a group turn kept the first reply but the second persona failed.
type SendMessageResponse struct {
	Replies []*store.Message    `json:"replies"`
	Thread  []*store.Message    `json:"thread"`
	Error   string              `json:"error,omitempty"`
	Code    apierrors.ErrorCode `json:"code,omitempty"`
}

// SendMessage runs one turn in the thread and returns the replies it produced.
// POST /api/v1/threads/:mode/messages
func (s *APIV1Service) SendMessage(c echo.Context) error {
	rc := requestContext(c, c.Param("mode"))
	mode, err := store.ParseChatMode(c.Param("mode"))
	if err != nil {
		return writeError(c, rc, apierrors.InvalidArgument(err.Error()))
	}
	req := &SendMessageRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, rc, bindError(err))
	}

	// The turn outlives a disconnected client so both replies still land in the thread.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), timeout.TurnTimeout)
	defer cancel()
	result, err := s.Session.Send(ctx, mode, req.Content, req.credentials(), nil)
	replies := 0
	if result != nil {
		replies = len(result.Replies)
	}
	s.Metrics.RecordTurn(string(mode), rc.Duration(), replies, err != nil)

	var partial *roleplay.PartialTurnError
	if errors.As(err, &partial) {
		apiErr := apierrors.FromError(partial.Cause)
		rc.Warn("turn partially completed",
			slog.String("missing", string(partial.Missing)),
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
		)
		return c.JSON(http.StatusOK, &SendMessageResponse{
			Replies: result.Replies,
			Thread:  result.Thread,
			Error:   partial.Error(),
			Code:    apiErr.Code,
		})
	}
	if err != nil {
		return writeError(c, rc, err)
	}

	rc.Info("message handled",
		slog.Int(observability.LogFieldReplies, replies),
		slog.Int(observability.LogFieldMessageLen, len([]rune(req.Content))),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return c.JSON(http.StatusOK, &SendMessageResponse{Replies: result.Replies, Thread: result.Thread})
}
