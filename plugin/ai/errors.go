package ai

import (
	"fmt"
	"unicode/utf8"

	"github.com/hrygo/rivalchat/plugin/ai/timeout"
)

// ConfigError means the endpoint or credential is missing or unusable. No call was made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("completion endpoint is not configured: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("completion endpoint is not configured: missing %s", e.Field)
}

// UpstreamError is a non-success reply from the completion endpoint.
// StatusCode is 0 when the endpoint could not be reached at all.
type UpstreamError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("completion endpoint unreachable: %v", e.Cause)
	}
	return fmt.Sprintf("completion endpoint returned status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError is a success reply that carries no usable text.
type MalformedResponseError struct {
	Reason string
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed completion response: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed completion response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// GenerationParseError means a generated persona document could not be accepted.
type GenerationParseError struct {
	Reason string
	Cause  error
}

func (e *GenerationParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse generated persona: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("failed to parse generated persona: %s", e.Reason)
}

func (e *GenerationParseError) Unwrap() error {
	return e.Cause
}

// Truncate shortens s to at most timeout.MaxTruncateLength runes.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= timeout.MaxTruncateLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:timeout.MaxTruncateLength])
}
