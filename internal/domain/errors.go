package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Pre-flight errors
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrMissingAPIKey   = errors.New("please set your API key first")

	// Settings errors
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// Renaming errors
	ErrEmptySuggestion = errors.New("model returned an empty file name")

	// Batch errors
	ErrBatchInProgress = errors.New("a batch is already being processed")

	// History errors
	ErrHistoryNotFound = errors.New("history entry not found")
	ErrNotUndoable     = errors.New("history entry cannot be undone")
)

// ─── Suggestion Error Taxonomy ──────────────────────────────────────────────

// ErrorKind classifies a failed suggestion or verification call.
// Every transport or provider error maps to exactly one kind.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindInvalidCredentials
	KindTimeout
	KindConnectionError
	KindModelOrEndpointNotFound
	KindRateLimited
)

// String returns the stable identifier of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindTimeout:
		return "timeout"
	case KindConnectionError:
		return "connection_error"
	case KindModelOrEndpointNotFound:
		return "model_or_endpoint_not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unexpected"
	}
}

// SuggestionError is the failure branch of a suggestion or verification.
type SuggestionError struct {
	Kind   ErrorKind
	Detail string
}

// NewSuggestionError builds a SuggestionError.
func NewSuggestionError(kind ErrorKind, detail string) *SuggestionError {
	return &SuggestionError{Kind: kind, Detail: detail}
}

// Message returns the user-facing text for the error.
func (e *SuggestionError) Message() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "AI Service Error: Invalid API key"
	case KindTimeout:
		return "AI Service Error: API timeout"
	case KindConnectionError:
		return "AI Service Error: API connection error"
	case KindModelOrEndpointNotFound:
		return "AI Service Error: Model or endpoint not found"
	case KindRateLimited:
		return "AI Service Error: Request rate limit exceeded"
	default:
		if e.Detail == "" {
			return "AI Service Error"
		}
		return fmt.Sprintf("AI Service Error: %s", e.Detail)
	}
}

func (e *SuggestionError) Error() string {
	if e.Detail == "" || e.Kind == KindUnexpected {
		return e.Message()
	}
	return fmt.Sprintf("%s (%s)", e.Message(), e.Detail)
}

// KindOf returns the ErrorKind carried by err, or KindUnexpected.
func KindOf(err error) ErrorKind {
	var se *SuggestionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// UserMessage returns the short user-facing message for err.
func UserMessage(err error) string {
	var se *SuggestionError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}
