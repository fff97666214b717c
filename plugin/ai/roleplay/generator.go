package roleplay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\n?(.*?)\\n?```")
	anyFencePattern  = regexp.MustCompile("(?s)```\\n?(.*?)\\n?```")
)

// requiredPersonaFields are the dotted paths every generated persona must carry with a non-null value.
var requiredPersonaFields = []string{
	"name",
	"age",
	"education.school",
	"education.major",
	"education.degree",
	"familyBackground.fatherOccupation",
	"familyBackground.motherOccupation",
	"familyBackground.familyStatus",
	"familyBackground.propertyCount",
	"familyBackground.carBrand",
	"career.title",
	"career.company",
	"career.industry",
	"career.annualIncome",
	"career.subordinates",
	"philosophy.lifeMotto",
	"philosophy.successSecret",
	"philosophy.worldview",
	"hobbies",
	"catchphrases",
	"personalityTraits",
}

// Generator asks the completion endpoint for new personas.
type Generator struct {
	completer Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate creates one persona with a fresh id.
func (g *Generator) Generate(ctx context.Context, creds ai.Credentials) (*store.Persona, error) {
	content, err := g.completer.Complete(ctx, &ai.CompletionRequest{
		Endpoint:     creds.APIURL,
		APIKey:       creds.APIKey,
		Model:        creds.Model,
		SystemPrompt: generatorSystemPrompt,
		History:      []ai.Message{ai.UserMessage(generatorUserPrompt)},
		Temperature:  ai.GenerationTemperature,
		MaxTokens:    ai.GenerationMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	persona, err := ParsePersona(content)
	if err != nil {
		slog.Warn("generated persona rejected", "error", err, "content", ai.Truncate(content))
		return nil, err
	}
	persona.ID = fmt.Sprintf("persona_%s", shortuuid.New())
	return persona, nil
}

// GeneratePair generates persona A and then persona B. Nothing is returned unless both succeed.
func (g *Generator) GeneratePair(ctx context.Context, creds ai.Credentials) (*store.PersonaPair, error) {
	a, err := g.Generate(ctx, creds)
	if err != nil {
		return nil, err
	}
	b, err := g.Generate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &store.PersonaPair{A: a, B: b}, nil
}

// extractJSON returns the body of a ```json fence, else of a bare ``` fence, else the whole content.
func extractJSON(content string) string {
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	if m := anyFencePattern.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// ParsePersona accepts a generated persona document. Missing or null required fields are rejected, never defaulted.
func ParsePersona(content string) (*store.Persona, error) {
	raw := []byte(extractJSON(content))

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, &ai.GenerationParseError{Reason: "reply is not a JSON object", Cause: err}
	}
	for _, path := range requiredPersonaFields {
		if !hasField(document, path) {
			return nil, &ai.GenerationParseError{Reason: fmt.Sprintf("missing required field %q", path)}
		}
	}

	persona := &store.Persona{}
	if err := json.Unmarshal(raw, persona); err != nil {
		return nil, &ai.GenerationParseError{Reason: "field has the wrong type", Cause: err}
	}
	if strings.TrimSpace(persona.Name) == "" {
		return nil, &ai.GenerationParseError{Reason: "name is empty"}
	}
	return persona, nil
}

func hasField(document map[string]any, path string) bool {
	var current any = document
	for _, part := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return false
		}
		current, ok = object[part]
		if !ok || current == nil {
			return false
		}
	}
	return true
}
