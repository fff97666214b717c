package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/rivalchat/internal/profile"
)

// Store provides typed access to the conversation state kept under fixed logical keys.
// It is the sole owner of durable state: both personas, the three threads and the saved API config.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// getJSON decodes the value under key into v. It reports false when the key is unset.
func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.driver.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to get %s", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s", key)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}
	if err := s.driver.Set(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "failed to set %s", key)
	}
	return nil
}

// GetPersona returns the persona in slot, or nil when none was generated yet.
func (s *Store) GetPersona(ctx context.Context, slot PersonaSlot) (*Persona, error) {
	key, err := personaKey(slot)
	if err != nil {
		return nil, err
	}
	persona := &Persona{}
	ok, err := s.getJSON(ctx, key, persona)
	if err != nil || !ok {
		return nil, err
	}
	return persona, nil
}

func (s *Store) GetPersonas(ctx context.Context) (*PersonaPair, error) {
	a, err := s.GetPersona(ctx, PersonaSlotA)
	if err != nil {
		return nil, err
	}
	b, err := s.GetPersona(ctx, PersonaSlotB)
	if err != nil {
		return nil, err
	}
	return &PersonaPair{A: a, B: b}, nil
}

// SetPersonas replaces both persona slots.
func (s *Store) SetPersonas(ctx context.Context, pair *PersonaPair) error {
	if !pair.Complete() {
		return errors.New("both personas are required")
	}
	if err := s.setJSON(ctx, KeyPersonaA, pair.A); err != nil {
		return err
	}
	return s.setJSON(ctx, KeyPersonaB, pair.B)
}

// DeletePersonas empties both persona slots.
func (s *Store) DeletePersonas(ctx context.Context) error {
	for _, key := range []string{KeyPersonaA, KeyPersonaB} {
		if err := s.driver.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "failed to delete %s", key)
		}
	}
	return nil
}

// GetThread returns the messages of the thread in append order. An unset thread is empty.
func (s *Store) GetThread(ctx context.Context, mode ChatMode) ([]*Message, error) {
	key, err := threadKey(mode)
	if err != nil {
		return nil, err
	}
	messages := []*Message{}
	if _, err := s.getJSON(ctx, key, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ReplaceThread overwrites the whole thread with the given snapshot.
func (s *Store) ReplaceThread(ctx context.Context, mode ChatMode, messages []*Message) error {
	key, err := threadKey(mode)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []*Message{}
	}
	return s.setJSON(ctx, key, messages)
}

// ClearThreads empties all three threads.
func (s *Store) ClearThreads(ctx context.Context) error {
	for _, mode := range ChatModes {
		if err := s.ReplaceThread(ctx, mode, nil); err != nil {
			return err
		}
	}
	return nil
}

// GetAPIConfig returns the saved API config, or nil when none was saved.
func (s *Store) GetAPIConfig(ctx context.Context) (*APIConfig, error) {
	config := &APIConfig{}
	ok, err := s.getJSON(ctx, KeyAPIConfig, config)
	if err != nil || !ok {
		return nil, err
	}
	return config, nil
}

func (s *Store) UpsertAPIConfig(ctx context.Context, config *APIConfig) error {
	if config == nil {
		return errors.New("api config is nil")
	}
	return s.setJSON(ctx, KeyAPIConfig, config)
}

func (s *Store) DeleteAPIConfig(ctx context.Context) error {
	if err := s.driver.Delete(ctx, KeyAPIConfig); err != nil {
		return errors.Wrap(err, "failed to delete api config")
	}
	return nil
}

// ListThreadSummaries returns one chat list entry per thread, private threads first.
func (s *Store) ListThreadSummaries(ctx context.Context) ([]*ThreadSummary, error) {
	pair, err := s.GetPersonas(ctx)
	if err != nil {
		return nil, err
	}
	names := map[ChatMode]string{
		ChatModePrivateA: "油腻男A",
		ChatModePrivateB: "油腻男B",
		ChatModeGroup:    "三人小群",
	}
	if pair.A != nil {
		names[ChatModePrivateA] = pair.A.Name
	}
	if pair.B != nil {
		names[ChatModePrivateB] = pair.B.Name
	}

	summaries := []*ThreadSummary{}
	for _, mode := range []ChatMode{ChatModePrivateA, ChatModePrivateB, ChatModeGroup} {
		messages, err := s.GetThread(ctx, mode)
		if err != nil {
			return nil, err
		}
		summary := &ThreadSummary{
			Mode:  mode,
			Name:  names[mode],
			Count: len(messages),
		}
		for _, m := range messages {
			if m.SenderID != SenderUser {
				summary.Unread++
			}
		}
		if n := len(messages); n > 0 {
			last := messages[n-1]
			summary.LastMessage = last.Content
			summary.LastTime = last.Timestamp
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
