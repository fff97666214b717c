package ai

import (
	"strings"

	"github.com/hrygo/rivalchat/internal/profile"
)

// Sentinel is the placeholder a presentation sends to mean "use the server default".
const Sentinel = "server-configured"

// Credentials are the three values needed to call the completion endpoint.
type Credentials struct {
	APIKey string
	APIURL string
	Model  string
}

// Or fills every empty value of c from fallback. The sentinel is a value and is kept.
func (c Credentials) Or(fallback Credentials) Credentials {
	if strings.TrimSpace(c.APIKey) == "" {
		c.APIKey = fallback.APIKey
	}
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = fallback.APIURL
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = fallback.Model
	}
	return c
}

// Defaults holds the process-wide credentials.
type Defaults struct {
	APIKey string
	APIURL string
	Model  string
}

// NewDefaultsFromProfile reads the process-wide credentials from profile.
func NewDefaultsFromProfile(p *profile.Profile) *Defaults {
	return &Defaults{
		APIKey: p.DefaultAPIKey,
		APIURL: p.DefaultAPIURL,
		Model:  p.DefaultModel,
	}
}

// ConfigProbe reports which defaults are present without exposing them.
type ConfigProbe struct {
	HasAPIKey bool `json:"hasApiKey"`
	HasAPIURL bool `json:"hasApiUrl"`
	HasModel  bool `json:"hasModel"`
}

func (d *Defaults) Probe() ConfigProbe {
	return ConfigProbe{
		HasAPIKey: d.APIKey != "",
		HasAPIURL: d.APIURL != "",
		HasModel:  d.Model != "",
	}
}

// Resolve applies one policy to every caller value: the sentinel or an empty value
// resolves to the default, anything else is used literally. The model finally falls back to gpt-4.
func (d *Defaults) Resolve(caller Credentials) Credentials {
	resolved := Credentials{
		APIKey: resolveValue(caller.APIKey, d.APIKey),
		APIURL: resolveValue(caller.APIURL, d.APIURL),
		Model:  resolveValue(caller.Model, d.Model),
	}
	if resolved.Model == "" {
		resolved.Model = profile.DefaultModel
	}
	return resolved
}

func resolveValue(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == Sentinel {
		return fallback
	}
	return value
}
