package roleplay

import (
	"context"
	"errors"
	"sync"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

type scriptedReply struct {
	text string
	err  error
}

// scriptedCompleter answers calls with the scripted replies in order and records every request.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []*ai.CompletionRequest
}

func newScriptedCompleter(replies ...scriptedReply) *scriptedCompleter {
	return &scriptedCompleter{replies: replies}
}

func (c *scriptedCompleter) Complete(_ context.Context, req *ai.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := *req
	recorded.History = append([]ai.Message(nil), req.History...)
	c.requests = append(c.requests, &recorded)

	if len(c.replies) == 0 {
		return "", errors.New("unexpected completion call")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply.text, reply.err
}

func (c *scriptedCompleter) calls() []*ai.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ai.CompletionRequest(nil), c.requests...)
}

func reply(text string) scriptedReply {
	return scriptedReply{text: text}
}

func failure(err error) scriptedReply {
	return scriptedReply{err: err}
}

func testPersona(id, name string) *store.Persona {
	return &store.Persona{
		ID:   id,
		Name: name,
		Age:  35,
		Education: store.Education{
			School: "某985大学",
			Major:  "工商管理",
			Degree: "MBA",
		},
		FamilyBackground: store.FamilyBackground{
			FatherOccupation: "退休处长",
			MotherOccupation: "中学校长",
			FamilyStatus:     "书香门第",
			PropertyCount:    3,
			CarBrand:         "宝马X5",
		},
		Career: store.Career{
			Title:        "战略总监",
			Company:      "某互联网大厂",
			Industry:     "互联网",
			AnnualIncome: "税后七位数吧",
			Subordinates: 30,
		},
		Philosophy: store.Philosophy{
			LifeMotto:     "格局决定结局",
			SuccessSecret: "永远比别人多想一步",
			Worldview:     "认知即财富",
		},
		Hobbies:           []string{"高尔夫", "威士忌", "健身房"},
		Catchphrases:      []string{"说实话", "从商业逻辑上说"},
		PersonalityTraits: []string{"好胜", "爱面子"},
	}
}

func testPair() *store.PersonaPair {
	return &store.PersonaPair{
		A: testPersona("persona_kevin", "Kevin"),
		B: testPersona("persona_jason", "Jason"),
	}
}

var testCredentials = ai.Credentials{APIKey: "sk-test", APIURL: "https://llm.example.com/v1/chat/completions", Model: "gpt-4"}
