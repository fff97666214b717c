package roleplay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

func senders(thread []*store.Message) []store.SenderID {
	ids := make([]store.SenderID, len(thread))
	for i, m := range thread {
		ids[i] = m.SenderID
	}
	return ids
}

func historyContains(history []ai.Message, content string) bool {
	for _, m := range history {
		if m.Content == content {
			return true
		}
	}
	return false
}

type appendRecorder struct {
	snapshots [][]*store.Message
	replies   []*store.Message
}

func (r *appendRecorder) hooks() TurnHooks {
	return TurnHooks{
		OnAppend: func(_ context.Context, thread []*store.Message) error {
			r.snapshots = append(r.snapshots, thread)
			return nil
		},
		OnReply: func(m *store.Message) {
			r.replies = append(r.replies, m)
		},
	}
}

func TestRunTurnPrivate(t *testing.T) {
	tests := []struct {
		mode      store.ChatMode
		responder store.SenderID
		persona   string
	}{
		{mode: store.ChatModePrivateA, responder: store.SenderPersonaA, persona: "Kevin"},
		{mode: store.ChatModePrivateB, responder: store.SenderPersonaB, persona: "Jason"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			completer := newScriptedCompleter(reply("哥最近在看一个新赛道"))
			recorder := &appendRecorder{}
			o := NewOrchestrator(completer, nil, time.Hour)

			result, err := o.RunTurn(context.Background(), &TurnRequest{
				Mode:        tt.mode,
				Content:     "  在忙啥呢  ",
				Personas:    testPair(),
				Credentials: testCredentials,
			}, recorder.hooks())
			require.NoError(t, err)

			assert.Equal(t, []store.SenderID{store.SenderUser, tt.responder}, senders(result.Thread))
			assert.Equal(t, "在忙啥呢", result.Thread[0].Content)
			require.Len(t, result.Replies, 1)
			assert.Equal(t, "哥最近在看一个新赛道", result.Replies[0].Content)
			assert.True(t, strings.HasPrefix(result.Replies[0].ID, string(tt.responder)+"_"))

			calls := completer.calls()
			require.Len(t, calls, 1)
			assert.Contains(t, calls[0].SystemPrompt, "姓名："+tt.persona)
			assert.NotContains(t, calls[0].SystemPrompt, rivalryMarker)
			assert.Equal(t, ai.ChatTemperature, calls[0].Temperature)
			assert.Equal(t, ai.ChatMaxTokens, calls[0].MaxTokens)
			assert.Equal(t, testCredentials.APIURL, calls[0].Endpoint)
			assert.Equal(t, []ai.Message{ai.UserMessage("在忙啥呢")}, calls[0].History)

			require.Len(t, recorder.snapshots, 2)
			assert.Len(t, recorder.snapshots[0], 1)
			assert.Len(t, recorder.snapshots[1], 2)
			assert.Equal(t, result.Replies, recorder.replies)
		})
	}
}

func TestRunTurnGroupOrdering(t *testing.T) {
	const replyA = "还不错，刚谈了个大项目💼"
	const replyB = "我上周刚签了个更大的🔥"
	completer := newScriptedCompleter(reply(replyA), reply(replyB))
	recorder := &appendRecorder{}
	o := NewOrchestrator(completer, nil, 0)

	prior := []*store.Message{NewMessage(store.SenderUser, "早"), NewMessage(store.SenderPersonaB, "早啊兄弟们")}
	result, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode:        store.ChatModeGroup,
		Content:     "你最近怎么样",
		Thread:      prior,
		Personas:    testPair(),
		Credentials: testCredentials,
	}, recorder.hooks())
	require.NoError(t, err)

	assert.Equal(t, []store.SenderID{
		store.SenderUser, store.SenderPersonaB,
		store.SenderUser, store.SenderPersonaA, store.SenderPersonaB,
	}, senders(result.Thread))

	calls := completer.calls()
	require.Len(t, calls, 2)
	// A speaks first against B and never sees this turn's B reply.
	assert.Contains(t, calls[0].SystemPrompt, "姓名：Kevin")
	assert.Contains(t, calls[0].SystemPrompt, "对方是用户和Jason")
	assert.False(t, historyContains(calls[0].History, replyB))
	assert.Equal(t, ai.UserMessage("你最近怎么样"), calls[0].History[len(calls[0].History)-1])
	// B speaks second against A with A's reply as the latest message.
	assert.Contains(t, calls[1].SystemPrompt, "姓名：Jason")
	assert.Contains(t, calls[1].SystemPrompt, "对方是用户和Kevin")
	assert.Equal(t, ai.AssistantMessage(replyA), calls[1].History[len(calls[1].History)-1])

	require.Len(t, recorder.replies, 2)
	assert.Equal(t, store.SenderPersonaA, recorder.replies[0].SenderID)
	assert.Equal(t, store.SenderPersonaB, recorder.replies[1].SenderID)
	assert.Len(t, recorder.snapshots, 3)

	// The caller's thread is never mutated.
	assert.Len(t, prior, 2)
}

func TestRunTurnFirstResponderFails(t *testing.T) {
	upstream := &ai.UpstreamError{StatusCode: 500, Body: "rate limited"}
	completer := newScriptedCompleter(failure(upstream))
	recorder := &appendRecorder{}
	o := NewOrchestrator(completer, nil, 0)

	result, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode:        store.ChatModeGroup,
		Content:     "你最近怎么样",
		Personas:    testPair(),
		Credentials: testCredentials,
	}, recorder.hooks())

	var got *ai.UpstreamError
	require.True(t, errors.As(err, &got))
	var partial *PartialTurnError
	assert.False(t, errors.As(err, &partial))
	assert.Equal(t, []store.SenderID{store.SenderUser}, senders(result.Thread))
	assert.Empty(t, result.Replies)
	assert.Len(t, completer.calls(), 1)
	assert.Len(t, recorder.snapshots, 1)
}

func TestRunTurnSecondResponderFails(t *testing.T) {
	completer := newScriptedCompleter(reply("还不错"), failure(&ai.MalformedResponseError{Reason: "no choices"}))
	recorder := &appendRecorder{}
	o := NewOrchestrator(completer, nil, 0)

	result, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode:        store.ChatModeGroup,
		Content:     "你最近怎么样",
		Personas:    testPair(),
		Credentials: testCredentials,
	}, recorder.hooks())

	var partial *PartialTurnError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, store.SenderPersonaB, partial.Missing)
	var malformed *ai.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))

	assert.Equal(t, []store.SenderID{store.SenderUser, store.SenderPersonaA}, senders(result.Thread))
	require.Len(t, result.Replies, 1)
	assert.Equal(t, "还不错", result.Replies[0].Content)
	assert.Len(t, recorder.snapshots, 2)
}

func TestRunTurnRejectsInvalidInput(t *testing.T) {
	completer := newScriptedCompleter()
	recorder := &appendRecorder{}
	o := NewOrchestrator(completer, nil, 0)

	_, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode: store.ChatModeGroup, Content: " \n\t ", Personas: testPair(),
	}, recorder.hooks())
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = o.RunTurn(context.Background(), &TurnRequest{
		Mode: store.ChatModeGroup, Content: "hi", Personas: &store.PersonaPair{A: testPersona("a", "Kevin")},
	}, recorder.hooks())
	assert.ErrorIs(t, err, ErrPersonasMissing)

	_, err = o.RunTurn(context.Background(), &TurnRequest{
		Mode: "broadcast", Content: "hi", Personas: testPair(),
	}, recorder.hooks())
	assert.Error(t, err)

	assert.Empty(t, completer.calls())
	assert.Empty(t, recorder.snapshots)
}

func TestRunTurnAppendFailureAborts(t *testing.T) {
	completer := newScriptedCompleter(reply("unused"))
	o := NewOrchestrator(completer, nil, 0)
	storeErr := errors.New("disk full")

	_, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode: store.ChatModePrivateA, Content: "hi", Personas: testPair(), Credentials: testCredentials,
	}, TurnHooks{OnAppend: func(context.Context, []*store.Message) error { return storeErr }})
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, completer.calls())
}

func TestRunTurnReplyDelay(t *testing.T) {
	completer := newScriptedCompleter(reply("A"), reply("B"))
	o := NewOrchestrator(completer, nil, 50*time.Millisecond)

	start := time.Now()
	result, err := o.RunTurn(context.Background(), &TurnRequest{
		Mode: store.ChatModeGroup, Content: "hi", Personas: testPair(), Credentials: testCredentials,
	}, TurnHooks{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Len(t, result.Replies, 2)
}

func TestRunTurnCanceledDuringDelay(t *testing.T) {
	completer := newScriptedCompleter(reply("A"), reply("B"))
	o := NewOrchestrator(completer, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result, err := o.RunTurn(ctx, &TurnRequest{
		Mode: store.ChatModeGroup, Content: "hi", Personas: testPair(), Credentials: testCredentials,
	}, TurnHooks{OnReply: func(*store.Message) { cancel() }})

	var partial *PartialTurnError
	require.True(t, errors.As(err, &partial))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []store.SenderID{store.SenderUser, store.SenderPersonaA}, senders(result.Thread))
	assert.Len(t, completer.calls(), 1)
}

func TestHistory(t *testing.T) {
	thread := []*store.Message{
		NewMessage(store.SenderUser, "u"),
		nil,
		NewMessage(store.SenderPersonaA, "a"),
		NewMessage(store.SenderPersonaB, "b"),
	}
	assert.Equal(t, []ai.Message{
		ai.UserMessage("u"),
		ai.AssistantMessage("a"),
		ai.AssistantMessage("b"),
	}, History(thread))
}
