package roleplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

// Completer performs one chat completion.
type Completer interface {
	Complete(ctx context.Context, req *ai.CompletionRequest) (string, error)
}

// TurnRequest is everything one turn needs. The orchestrator keeps no state of its own.
type TurnRequest struct {
	Mode        store.ChatMode
	Content     string
	Thread      []*store.Message
	Personas    *store.PersonaPair
	Credentials ai.Credentials
}

// TurnResult holds the replies produced by a turn and the final thread snapshot.
type TurnResult struct {
	Replies []*store.Message `json:"replies"`
	Thread  []*store.Message `json:"thread"`
}

// TurnHooks observe a turn as it progresses.
type TurnHooks struct {
	// OnAppend receives the full thread after every append. An error aborts the turn.
	OnAppend func(ctx context.Context, thread []*store.Message) error
	// OnReply fires after each persona reply is appended.
	OnReply func(reply *store.Message)
}

// Orchestrator runs a turn: append the user message, then collect persona replies in order.
type Orchestrator struct {
	completer  Completer
	renderer   *PromptRenderer
	replyDelay time.Duration
}

// NewOrchestrator creates an orchestrator. replyDelay paces the second group reply; zero disables it.
func NewOrchestrator(completer Completer, renderer *PromptRenderer, replyDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		completer:  completer,
		renderer:   renderer,
		replyDelay: replyDelay,
	}
}

// NewMessage creates a text message from sender stamped with the current time.
func NewMessage(sender store.SenderID, content string) *store.Message {
	return &store.Message{
		ID:        fmt.Sprintf("%s_%s", sender, uuid.NewString()),
		SenderID:  sender,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Type:      store.MessageTypeText,
	}
}

// History maps a thread onto completion roles: the user speaks as user, everyone else as assistant.
func History(thread []*store.Message) []ai.Message {
	history := make([]ai.Message, 0, len(thread))
	for _, m := range thread {
		if m == nil {
			continue
		}
		if m.SenderID == store.SenderUser {
			history = append(history, ai.UserMessage(m.Content))
		} else {
			history = append(history, ai.AssistantMessage(m.Content))
		}
	}
	return history
}

// RunTurn executes one user turn.
// When the first responder fails the turn aborts with only the user message appended.
// When the second group responder fails the first reply is kept and a *PartialTurnError is returned with the result.
func (o *Orchestrator) RunTurn(ctx context.Context, req *TurnRequest, hooks TurnHooks) (*TurnResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !req.Personas.Complete() {
		return nil, ErrPersonasMissing
	}
	responders := req.Mode.Responders()
	if len(responders) == 0 {
		return nil, fmt.Errorf("unknown chat mode: %q", req.Mode)
	}

	thread := append(make([]*store.Message, 0, len(req.Thread)+1+len(responders)), req.Thread...)
	result := &TurnResult{Replies: []*store.Message{}}

	thread = append(thread, NewMessage(store.SenderUser, content))
	if err := o.appended(ctx, hooks, thread); err != nil {
		return nil, err
	}
	result.Thread = thread

	for i, responder := range responders {
		if i > 0 {
			if err := o.wait(ctx); err != nil {
				return result, &PartialTurnError{Missing: responder, Cause: err}
			}
		}

		reply, err := o.reply(ctx, req, responder, thread)
		if err != nil {
			slog.Warn("persona reply failed",
				"chat_mode", string(req.Mode),
				"responder", string(responder),
				"error", err,
			)
			if i == 0 {
				return result, err
			}
			return result, &PartialTurnError{Missing: responder, Cause: err}
		}

		thread = append(thread, reply)
		if err := o.appended(ctx, hooks, thread); err != nil {
			return result, err
		}
		result.Thread = thread
		result.Replies = append(result.Replies, reply)
		if hooks.OnReply != nil {
			hooks.OnReply(reply)
		}
	}
	return result, nil
}

func (o *Orchestrator) reply(ctx context.Context, req *TurnRequest, responder store.SenderID, thread []*store.Message) (*store.Message, error) {
	persona, rival := req.Personas.A, req.Personas.B
	if responder == store.SenderPersonaB {
		persona, rival = req.Personas.B, req.Personas.A
	}

	prompt, err := o.renderer.Render(persona, req.Mode, rival)
	if err != nil {
		return nil, err
	}
	text, err := o.completer.Complete(ctx, &ai.CompletionRequest{
		Endpoint:     req.Credentials.APIURL,
		APIKey:       req.Credentials.APIKey,
		Model:        req.Credentials.Model,
		SystemPrompt: prompt,
		History:      History(thread),
		Temperature:  ai.ChatTemperature,
		MaxTokens:    ai.ChatMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return NewMessage(responder, text), nil
}

func (*Orchestrator) appended(ctx context.Context, hooks TurnHooks, thread []*store.Message) error {
	if hooks.OnAppend == nil {
		return nil
	}
	// Hooks get their own slice so later appends never alias what they keep.
	snapshot := append([]*store.Message(nil), thread...)
	return hooks.OnAppend(ctx, snapshot)
}

// wait pauses for the reply delay, returning early with the context error on cancellation.
func (o *Orchestrator) wait(ctx context.Context) error {
	if o.replyDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.replyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
