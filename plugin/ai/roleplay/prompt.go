package roleplay

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/rivalchat/plugin/ai/cache"
	"github.com/hrygo/rivalchat/store"
)

type promptData struct {
	Persona *store.Persona
	Rival   *store.Persona
}

// Render builds the instruction text for persona speaking in mode.
// rival is required in the group thread and ignored elsewhere. Identical inputs render byte-identical output.
func Render(persona *store.Persona, mode store.ChatMode, rival *store.Persona) (string, error) {
	if persona == nil {
		return "", ErrPersonasMissing
	}
	if _, err := store.ParseChatMode(string(mode)); err != nil {
		return "", err
	}

	data := promptData{Persona: persona}
	if mode.IsGroup() {
		if rival == nil {
			return "", ErrRivalRequired
		}
		data.Rival = rival
	}

	var buf bytes.Buffer
	if err := personaPromptTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to execute persona prompt template")
	}
	return strings.TrimSpace(buf.String()), nil
}

// PromptRenderer fronts Render with a prompt cache keyed by persona ids.
// Only stored personas go through it: their ids are unique and their content never changes.
type PromptRenderer struct {
	cache *cache.PromptCache
}

// NewPromptRenderer creates a renderer. A nil cache renders every call.
func NewPromptRenderer(c *cache.PromptCache) *PromptRenderer {
	return &PromptRenderer{cache: c}
}

func (r *PromptRenderer) Render(persona *store.Persona, mode store.ChatMode, rival *store.Persona) (string, error) {
	if r == nil || r.cache == nil || persona == nil {
		return Render(persona, mode, rival)
	}
	key := cache.PromptKey{PersonaID: persona.ID, Mode: string(mode)}
	if mode.IsGroup() && rival != nil {
		key.RivalID = rival.ID
	}
	return r.cache.GetOrRender(key, func() (string, error) {
		return Render(persona, mode, rival)
	})
}

// Forget drops cached prompts of replaced personas.
func (r *PromptRenderer) Forget(personas ...*store.Persona) {
	if r == nil || r.cache == nil {
		return
	}
	for _, persona := range personas {
		if persona != nil {
			r.cache.InvalidatePersona(persona.ID)
		}
	}
}
