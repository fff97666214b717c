package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db/memory"
)

type queuedCompleter struct {
	replies []string
	errs    []error
}

func (c *queuedCompleter) Complete(context.Context, *ai.CompletionRequest) (string, error) {
	text, err := c.replies[0], c.errs[0]
	c.replies, c.errs = c.replies[1:], c.errs[1:]
	return text, err
}

func newChatFixture(t *testing.T, completer roleplay.Completer) (*store.Store, *roleplay.Session, *store.PersonaPair) {
	t.Helper()
	ctx := context.Background()
	s := store.New(memory.NewDB(), nil)
	require.NoError(t, s.Migrate(ctx))
	pair := &store.PersonaPair{
		A: &store.Persona{ID: "persona_kevin", Name: "Kevin"},
		B: &store.Persona{ID: "persona_jason", Name: "Jason"},
	}
	require.NoError(t, s.SetPersonas(ctx, pair))
	session := roleplay.NewSession(roleplay.SessionConfig{
		Store:     s,
		Completer: completer,
		Defaults:  &ai.Defaults{APIKey: "sk-test", APIURL: "https://llm.example.com/v1/chat/completions"},
	})
	return s, session, pair
}

func TestRunChatGroup(t *testing.T) {
	completer := &queuedCompleter{
		replies: []string{"还不错，刚谈了个大项目💼", "我上周刚签了个更大的🔥", "A又说", ""},
		errs:    []error{nil, nil, nil, &ai.UpstreamError{StatusCode: 500, Body: "rate limited"}},
	}
	s, session, pair := newChatFixture(t, completer)

	var out bytes.Buffer
	in := strings.NewReader("你最近怎么样\n\n   \n再来\n/exit\n不会发送\n")
	require.NoError(t, runChat(context.Background(), session, pair, store.ChatModeGroup, in, &out))

	printed := out.String()
	assert.Contains(t, printed, "[三人小群]")
	assert.Contains(t, printed, "Kevin：还不错，刚谈了个大项目💼\n")
	assert.Contains(t, printed, "Jason：我上周刚签了个更大的🔥\n")
	assert.Less(t, strings.Index(printed, "Kevin："), strings.Index(printed, "Jason："))
	assert.Contains(t, printed, "Kevin：A又说\n")
	assert.Contains(t, printed, "（Jason 没有回复：")

	thread, err := s.GetThread(context.Background(), store.ChatModeGroup)
	require.NoError(t, err)
	assert.Len(t, thread, 5)
}

func TestRunChatReportsErrorsAndContinues(t *testing.T) {
	completer := &queuedCompleter{
		replies: []string{"", "好的"},
		errs:    []error{errors.New("boom"), nil},
	}
	_, session, pair := newChatFixture(t, completer)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), session, pair, store.ChatModePrivateB, strings.NewReader("在吗\n还在吗\n"), &out))

	printed := out.String()
	assert.Contains(t, printed, "[Jason]")
	assert.Contains(t, printed, "（发送失败：boom）")
	assert.Contains(t, printed, "Jason：好的\n")
}

func TestRunChatReveal(t *testing.T) {
	_, session, pair := newChatFixture(t, &queuedCompleter{})

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), session, pair, store.ChatModePrivateA, strings.NewReader("/reveal\n"), &out))
	assert.Contains(t, out.String(), "## 油腻男A：Kevin")
}

type recordingCompleter struct {
	requests []*ai.CompletionRequest
}

func (c *recordingCompleter) Complete(_ context.Context, req *ai.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	return "收到", nil
}

func TestRunChatUsesSavedSettings(t *testing.T) {
	ctx := context.Background()
	s := store.New(memory.NewDB(), nil)
	require.NoError(t, s.Migrate(ctx))
	pair := &store.PersonaPair{
		A: &store.Persona{ID: "persona_kevin", Name: "Kevin"},
		B: &store.Persona{ID: "persona_jason", Name: "Jason"},
	}
	require.NoError(t, s.SetPersonas(ctx, pair))
	require.NoError(t, s.UpsertAPIConfig(ctx, &store.APIConfig{APIKey: "sk-saved", APIURL: "https://saved.example.com/chat", Model: "saved-model"}))

	completer := &recordingCompleter{}
	session := roleplay.NewSession(roleplay.SessionConfig{Store: s, Completer: completer})

	var out bytes.Buffer
	require.NoError(t, runChat(ctx, session, pair, store.ChatModePrivateA, strings.NewReader("在吗\n"), &out))
	assert.Contains(t, out.String(), "Kevin：收到\n")

	require.Len(t, completer.requests, 1)
	assert.Equal(t, "sk-saved", completer.requests[0].APIKey)
	assert.Equal(t, "https://saved.example.com/chat", completer.requests[0].Endpoint)
	assert.Equal(t, "saved-model", completer.requests[0].Model)
}
