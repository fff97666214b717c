package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	apierrors "github.com/hrygo/rivalchat/server/internal/errors"
	"github.com/hrygo/rivalchat/store"
)

// CompleteChatRequest produces one persona reply from a client-held conversation.
type CompleteChatRequest struct {
	credentialRequest
	Profile      json.RawMessage  `json:"profile"`
	OtherProfile json.RawMessage  `json:"otherProfile"`
	Messages     []*store.Message `json:"messages"`
	ChatType     string           `json:"chatType"`
	SenderType   string           `json:"senderType"`
}

type CompleteChatResponse struct {
	Message *store.Message `json:"message"`
}

// legacySenders maps the sender names older clients still send.
var legacySenders = map[string]store.SenderID{
	"greasyA": store.SenderPersonaA,
	"greasyB": store.SenderPersonaB,
}

func parseSender(s string) (store.SenderID, error) {
	if sender, ok := legacySenders[s]; ok {
		return sender, nil
	}
	switch sender := store.SenderID(s); sender {
	case store.SenderPersonaA, store.SenderPersonaB:
		return sender, nil
	}
	return "", apierrors.InvalidArgument(fmt.Sprintf("invalid senderType %q", s))
}

// clientPersona checks a persona sent by the client the same way a generated one is checked.
// An absent or null document yields nil.
func clientPersona(field string, raw json.RawMessage) (*store.Persona, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	persona, err := roleplay.ParsePersona(string(raw))
	if err != nil {
		reason := err.Error()
		var parseErr *ai.GenerationParseError
		if errors.As(err, &parseErr) {
			reason = parseErr.Reason
		}
		return nil, apierrors.InvalidArgument(fmt.Sprintf("invalid %s: %s", field, reason))
	}
	return persona, nil
}

// chatMode picks the prompt variant for a stateless request.
func chatMode(chatType string, sender store.SenderID) (store.ChatMode, error) {
	switch chatType {
	case "group":
		return store.ChatModeGroup, nil
	case "private", "":
		if sender == store.SenderPersonaB {
			return store.ChatModePrivateB, nil
		}
		return store.ChatModePrivateA, nil
	}
	return "", apierrors.InvalidArgument(fmt.Sprintf("invalid chatType %q", chatType))
}

// CompleteChat renders the prompt of the given persona and returns its reply without touching the conversation store.
// POST /api/v1/completions/chat
func (s *APIV1Service) CompleteChat(c echo.Context) error {
	rc := requestContext(c, "")
	req := &CompleteChatRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, rc, bindError(err))
	}
	persona, err := clientPersona("profile", req.Profile)
	if err != nil {
		return writeError(c, rc, err)
	}
	if persona == nil {
		return writeError(c, rc, apierrors.InvalidArgument("profile is required"))
	}
	rival, err := clientPersona("otherProfile", req.OtherProfile)
	if err != nil {
		return writeError(c, rc, err)
	}
	for i, m := range req.Messages {
		if m == nil {
			return writeError(c, rc, apierrors.InvalidArgument(fmt.Sprintf("messages[%d] is null", i)))
		}
	}
	sender, err := parseSender(req.SenderType)
	if err != nil {
		return writeError(c, rc, err)
	}
	mode, err := chatMode(req.ChatType, sender)
	if err != nil {
		return writeError(c, rc, err)
	}
	rc.ChatMode = string(mode)

	// Client supplied personas carry no trusted id, so the prompt cache is bypassed.
	prompt, err := roleplay.Render(persona, mode, rival)
	if err != nil {
		return writeError(c, rc, err)
	}

	creds := s.Session.ResolveCredentials(c.Request().Context(), req.credentials())
	text, err := s.Completer.Complete(c.Request().Context(), &ai.CompletionRequest{
		Endpoint:     creds.APIURL,
		APIKey:       creds.APIKey,
		Model:        creds.Model,
		SystemPrompt: prompt,
		History:      roleplay.History(req.Messages),
		Temperature:  ai.ChatTemperature,
		MaxTokens:    ai.ChatMaxTokens,
	})
	if err != nil {
		return writeError(c, rc, err)
	}

	rc.Info("stateless reply", slog.Int64("duration_ms", rc.DurationMs()))
	return c.JSON(http.StatusOK, &CompleteChatResponse{Message: roleplay.NewMessage(sender, text)})
}

type GeneratePersonaResponse struct {
	Profile *store.Persona `json:"profile"`
}

// GeneratePersona asks the model for one new persona without storing it.
// POST /api/v1/personas/generate
func (s *APIV1Service) GeneratePersona(c echo.Context) error {
	rc := requestContext(c, "")
	req := &credentialRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, rc, bindError(err))
	}

	creds := s.Session.ResolveCredentials(c.Request().Context(), req.credentials())
	persona, err := s.Session.Generator().Generate(c.Request().Context(), creds)
	if err != nil {
		return writeError(c, rc, err)
	}
	return c.JSON(http.StatusOK, &GeneratePersonaResponse{Profile: persona})
}
