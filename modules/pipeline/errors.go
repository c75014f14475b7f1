package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError - 입력 이미지 검증 실패. 요청은 전송되지 않음
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string, err error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// GenerationError - 백엔드 실패 (non-2xx, transport, timeout, malformed response)
type GenerationError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	msg := e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

const (
	ReasonFailed    = "generation failed"
	ReasonTransport = "generation request failed"
	ReasonMalformed = "malformed generation response"
	ReasonCancelled = "generation cancelled"
)

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGenerationError reports whether err is, or wraps, a *GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
