package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
)

// ErrorCode represents a specific error type surfaced by the HTTP API.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeConfigMissing indicates the completion endpoint or credential is not configured.
	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING"
	// ErrCodePersonasMissing indicates no persona pair has been generated yet.
	ErrCodePersonasMissing ErrorCode = "PERSONAS_MISSING"
	// ErrCodeTurnInFlight indicates another turn or regeneration is running.
	ErrCodeTurnInFlight ErrorCode = "TURN_IN_FLIGHT"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeUpstream indicates the completion endpoint answered with a failure.
	ErrCodeUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrCodeMalformedResponse indicates the completion endpoint answered without a usable reply.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeGenerationParse indicates a generated persona document was rejected.
	ErrCodeGenerationParse ErrorCode = "GENERATION_PARSE_ERROR"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidArgument:   http.StatusBadRequest,
	ErrCodeConfigMissing:     http.StatusBadRequest,
	ErrCodePersonasMissing:   http.StatusConflict,
	ErrCodeTurnInFlight:      http.StatusConflict,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	ErrCodeUpstream:          http.StatusBadGateway,
	ErrCodeMalformedResponse: http.StatusBadGateway,
	ErrCodeGenerationParse:   http.StatusBadGateway,
	// nginx's "client closed request".
	ErrCodeContextCanceled: 499,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// HTTPStatus maps the code onto a response status.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AIError represents a structured error for the HTTP boundary.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value interface{}) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *AIError) GetCode() ErrorCode {
	return e.Code
}

// Response is the JSON body written for a failed request.
type Response struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// Response renders the human readable message. Causes are folded in so the user sees the upstream reason.
func (e *AIError) Response() Response {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return Response{Error: msg, Code: e.Code}
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code == code
	}
	return false
}

// FromError classifies any error raised below the HTTP layer.
func FromError(err error) *AIError {
	var (
		aiErr     *AIError
		cfgErr    *ai.ConfigError
		upstream  *ai.UpstreamError
		malformed *ai.MalformedResponseError
		parseErr  *ai.GenerationParseError
	)
	switch {
	case stderrors.As(err, &aiErr):
		return aiErr
	case stderrors.As(err, &cfgErr):
		return &AIError{Code: ErrCodeConfigMissing, Message: cfgErr.Error()}
	case stderrors.As(err, &upstream):
		return (&AIError{Code: ErrCodeUpstream, Message: upstream.Error()}).WithContext("status", upstream.StatusCode)
	case stderrors.As(err, &malformed):
		return &AIError{Code: ErrCodeMalformedResponse, Message: malformed.Error()}
	case stderrors.As(err, &parseErr):
		return &AIError{Code: ErrCodeGenerationParse, Message: parseErr.Error()}
	case stderrors.Is(err, roleplay.ErrEmptyContent), stderrors.Is(err, roleplay.ErrRivalRequired):
		return InvalidArgument(err.Error())
	case stderrors.Is(err, roleplay.ErrPersonasMissing):
		return &AIError{Code: ErrCodePersonasMissing, Message: err.Error()}
	case stderrors.Is(err, roleplay.ErrTurnInFlight):
		return &AIError{Code: ErrCodeTurnInFlight, Message: err.Error()}
	case stderrors.Is(err, context.Canceled):
		return &AIError{Code: ErrCodeContextCanceled, Message: "operation canceled"}
	default:
		return Wrap(err, ErrCodeInternal, "internal error")
	}
}
