package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in AppError.Code.
const (
	CodeBadRequest       = "ERR_BAD_REQUEST"
	CodeInternal         = "ERR_INTERNAL"
	CodeMacroUnavailable = "macro_fetch_failed"
)

// AppError is an error that knows its HTTP status and renders into the
// response envelope.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithError attaches the underlying cause. It is logged, never rendered.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}

// MacroUnavailableError is returned when upstream macro inputs cannot be
// fetched or fail validation.
func MacroUnavailableError(err error) *AppError {
	return InternalError("Failed to fetch macro inputs").WithError(err).withCode(CodeMacroUnavailable)
}

func (e *AppError) withCode(code string) *AppError {
	e.Code = code
	return e
}
