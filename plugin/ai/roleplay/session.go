package roleplay

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

// ConversationStore is the durable state a session reads and writes.
type ConversationStore interface {
	GetPersonas(ctx context.Context) (*store.PersonaPair, error)
	SetPersonas(ctx context.Context, pair *store.PersonaPair) error
	DeletePersonas(ctx context.Context) error
	GetThread(ctx context.Context, mode store.ChatMode) ([]*store.Message, error)
	ReplaceThread(ctx context.Context, mode store.ChatMode, messages []*store.Message) error
	ClearThreads(ctx context.Context) error
	GetAPIConfig(ctx context.Context) (*store.APIConfig, error)
}

// Session binds the orchestrator and the generator to the conversation store.
// Turns and regenerations are serialized: a second one is refused with ErrTurnInFlight rather than queued.
type Session struct {
	store        ConversationStore
	orchestrator *Orchestrator
	generator    *Generator
	renderer     *PromptRenderer
	defaults     *ai.Defaults
	lock         *semaphore.Weighted
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Store      ConversationStore
	Completer  Completer
	Renderer   *PromptRenderer
	Defaults   *ai.Defaults
	ReplyDelay time.Duration
}

func NewSession(cfg SessionConfig) *Session {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = &ai.Defaults{}
	}
	return &Session{
		store:        cfg.Store,
		orchestrator: NewOrchestrator(cfg.Completer, cfg.Renderer, cfg.ReplyDelay),
		generator:    NewGenerator(cfg.Completer),
		renderer:     cfg.Renderer,
		defaults:     defaults,
		lock:         semaphore.NewWeighted(1),
	}
}

func (s *Session) Defaults() *ai.Defaults {
	return s.defaults
}

func (s *Session) Generator() *Generator {
	return s.generator
}

// ResolveCredentials applies the credential policy every presentation shares:
// caller values win over the saved API config, which wins over the process defaults.
func (s *Session) ResolveCredentials(ctx context.Context, caller ai.Credentials) ai.Credentials {
	saved, err := s.store.GetAPIConfig(ctx)
	if err != nil {
		slog.Warn("failed to load saved api settings", "error", err)
	} else if saved != nil {
		caller = caller.Or(ai.Credentials{APIKey: saved.APIKey, APIURL: saved.APIURL, Model: saved.Model})
	}
	return s.defaults.Resolve(caller)
}

// Send runs one turn in mode and persists every snapshot as it is produced.
// onReply, when set, sees each persona reply as soon as it is stored.
func (s *Session) Send(ctx context.Context, mode store.ChatMode, content string, creds ai.Credentials, onReply func(*store.Message)) (*TurnResult, error) {
	if !s.lock.TryAcquire(1) {
		return nil, ErrTurnInFlight
	}
	defer s.lock.Release(1)

	personas, err := s.store.GetPersonas(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := s.store.GetThread(ctx, mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.orchestrator.RunTurn(ctx, &TurnRequest{
		Mode:        mode,
		Content:     content,
		Thread:      thread,
		Personas:    personas,
		Credentials: s.ResolveCredentials(ctx, creds),
	}, TurnHooks{
		OnAppend: func(ctx context.Context, snapshot []*store.Message) error {
			return s.store.ReplaceThread(ctx, mode, snapshot)
		},
		OnReply: onReply,
	})
	if result != nil {
		slog.Info("turn finished",
			"chat_mode", string(mode),
			"replies", len(result.Replies),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return result, err
}

// Regenerate replaces both personas and clears all three threads.
// Both personas are generated before anything is written. When a write fails part way,
// the previous pair and threads are put back before the error is returned.
func (s *Session) Regenerate(ctx context.Context, creds ai.Credentials) (*store.PersonaPair, error) {
	if !s.lock.TryAcquire(1) {
		return nil, ErrTurnInFlight
	}
	defer s.lock.Release(1)

	pair, err := s.generator.GeneratePair(ctx, s.ResolveCredentials(ctx, creds))
	if err != nil {
		return nil, err
	}

	previous, err := s.store.GetPersonas(ctx)
	if err != nil {
		return nil, err
	}
	threads := make(map[store.ChatMode][]*store.Message, len(store.ChatModes))
	for _, mode := range store.ChatModes {
		thread, err := s.store.GetThread(ctx, mode)
		if err != nil {
			return nil, err
		}
		threads[mode] = thread
	}

	if err := s.store.SetPersonas(ctx, pair); err != nil {
		s.restore(ctx, previous, threads)
		return nil, err
	}
	if err := s.store.ClearThreads(ctx); err != nil {
		s.restore(ctx, previous, threads)
		return nil, err
	}
	s.renderer.Forget(previous.A, previous.B)

	slog.Info("personas regenerated", "persona_a", pair.A.ID, "persona_b", pair.B.ID)
	return pair, nil
}

// restore writes back the state read before a failed regeneration. It is best effort and only logs its own failures.
func (s *Session) restore(ctx context.Context, previous *store.PersonaPair, threads map[store.ChatMode][]*store.Message) {
	ctx = context.WithoutCancel(ctx)

	var err error
	if previous.Complete() {
		err = s.store.SetPersonas(ctx, previous)
	} else {
		err = s.store.DeletePersonas(ctx)
	}
	if err != nil {
		slog.Error("failed to restore personas", "error", err)
	}
	for _, mode := range store.ChatModes {
		if err := s.store.ReplaceThread(ctx, mode, threads[mode]); err != nil {
			slog.Error("failed to restore thread", "chat_mode", string(mode), "error", err)
		}
	}
}

// EnsurePersonas generates a pair when none is stored, as on first launch.
func (s *Session) EnsurePersonas(ctx context.Context, creds ai.Credentials) (*store.PersonaPair, error) {
	pair, err := s.store.GetPersonas(ctx)
	if err != nil {
		return nil, err
	}
	if pair.Complete() {
		return pair, nil
	}
	return s.Regenerate(ctx, creds)
}
