package errors

import (
	"net/http"
	"strings"
)

// Error codes are stable identifiers; clients translate them.
// Backend logs are always in English.

// IO term error codes.
const (
	CodeIOTermNotFound     = "IO_TERM_NOT_FOUND"
	CodeIOTermLabelExists  = "IO_TERM_LABEL_EXISTS"
	CodeIOTermsNotFound    = "IO_TERMS_NOT_FOUND"
	CodeIOTermLabelInvalid = "IO_TERM_LABEL_INVALID"
)

// State error codes.
const (
	CodeStateNotFound   = "STATE_NOT_FOUND"
	CodeStateNameExists = "STATE_NAME_EXISTS"
)

// Validation error codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// Request error codes.
const (
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeOpenAPIRouteInvalid   = "OPENAPI_ROUTE_INVALID"
	CodeOpenAPIRequestInvalid = "OPENAPI_REQUEST_INVALID"
)

// Infrastructure error codes.
const (
	CodeStorageFailure = "STORAGE_FAILURE"
	CodeInternal       = "INTERNAL_ERROR"
)

// Convenience constructors using predefined codes.

// ErrIOTermNotFoundf creates an IO term not found error.
func ErrIOTermNotFoundf(termID string) *AppError {
	return NotFound(CodeIOTermNotFound, "IO term not found").
		WithParams(map[string]interface{}{"id": termID})
}

// ErrStateNotFoundf creates a state not found error.
func ErrStateNotFoundf(stateID string) *AppError {
	return NotFound(CodeStateNotFound, "state not found").
		WithParams(map[string]interface{}{"id": stateID})
}

// ErrDuplicateLabelf reports a case-insensitive label collision.
func ErrDuplicateLabelf(label string) *AppError {
	return Conflict(CodeIOTermLabelExists, "IO term with this label already exists").
		WithParams(map[string]interface{}{"label": label})
}

// ErrMissingTermsf reports term ids that do not exist. The ids are carried
// verbatim in Params["ids"].
func ErrMissingTermsf(ids []string) *AppError {
	missing := append([]string(nil), ids...)
	return BadRequest(CodeIOTermsNotFound, "IO terms not found: "+strings.Join(missing, ", ")).
		WithParams(map[string]interface{}{"ids": missing})
}

// ErrStateNameExistsf reports a state name collision inside one project.
func ErrStateNameExistsf(name string) *AppError {
	return Conflict(CodeStateNameExists, "state with this name already exists in the project").
		WithParams(map[string]interface{}{"name": name})
}

// ErrValidation creates a validation error carrying field-level details.
func ErrValidation(fieldErrors ...FieldError) *AppError {
	return BadRequest(CodeValidationFailed, "request validation failed").
		WithFieldErrors(fieldErrors)
}

// ErrInvalidRequestFieldf creates a bad request error for a malformed field.
func ErrInvalidRequestFieldf(fieldName string) *AppError {
	return &AppError{
		Code:       CodeInvalidRequestField,
		Message:    "request contains invalid field: " + fieldName,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrStorage wraps a persistence-layer failure. It is safe to retry the
// whole operation.
func ErrStorage(err error) *AppError {
	return Wrap(err, CodeStorageFailure, "storage operation failed", http.StatusServiceUnavailable)
}
