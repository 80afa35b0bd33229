package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"

	// Boundary validation errors
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Generation errors
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	CodeNotAnArray          ErrorCode = "NOT_AN_ARRAY"
	CodeNoValidItems        ErrorCode = "NO_VALID_ITEMS"

	// Upload errors
	CodeUnsupportedDocument ErrorCode = "UNSUPPORTED_DOCUMENT"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// WithContext attaches a key/value pair that is echoed in the error response details.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewInvalidRequestError(message string) *DomainError {
	return NewError(CodeInvalidRequest, message, nil)
}

func NewRateLimitedError(message string) *DomainError {
	return NewError(CodeRateLimited, message, nil)
}

// NewProviderUnavailableError wraps a failed call to the model provider.
func NewProviderUnavailableError(cause error) *DomainError {
	return NewError(CodeProviderUnavailable, "AI service is temporarily unavailable, please try again later", cause)
}

func NewMalformedResponseError(cause error) *DomainError {
	return NewError(CodeMalformedResponse, "Invalid AI response", cause)
}

func NewNotAnArrayError() *DomainError {
	return NewError(CodeNotAnArray, "Invalid AI response", fmt.Errorf("top-level value is not an array"))
}

func NewNoValidItemsError() *DomainError {
	return NewError(CodeNoValidItems, "Unable to generate content from this text, please try different content", nil)
}

func NewUnsupportedDocumentError(cause error) *DomainError {
	return NewError(CodeUnsupportedDocument, "Could not extract text from the uploaded document", cause)
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// AsDomainError unwraps err into a *DomainError if possible.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is returned by the boundary validator; the error handler maps it to 400.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeInvalidFormat,
		Message: fmt.Sprintf("%s has an invalid value", field),
		Value:   value,
	}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("%s must be between %d and %d", field, min, max),
		Value:   value,
	}
}
