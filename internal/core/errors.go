package core

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	ErrBadRequest             ErrorCode = "WSA_BAD_REQUEST"
	ErrNotFound               ErrorCode = "WSA_NOT_FOUND"
	ErrForbidden              ErrorCode = "WSA_FORBIDDEN"
	ErrConflictBuildActive    ErrorCode = "WSA_CONFLICT_BUILD_ACTIVE"
	ErrConflictIdempotent     ErrorCode = "WSA_CONFLICT_IDEMPOTENT_MISMATCH"
	ErrConflictExists         ErrorCode = "WSA_CONFLICT_EXISTS"
	ErrConflictNotCancelable  ErrorCode = "WSA_CONFLICT_NOT_CANCELABLE"
	ErrWorkspaceDormant       ErrorCode = "WSA_WORKSPACE_DORMANT"
	ErrMissingBuildParameters ErrorCode = "WSA_MISSING_BUILD_PARAMETERS"
	ErrImmutableParameter     ErrorCode = "WSA_IMMUTABLE_PARAMETER"
	ErrInternal               ErrorCode = "WSA_INTERNAL"
)

// HTTPStatus returns the HTTP status code for this error code.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrBadRequest, ErrMissingBuildParameters, ErrImmutableParameter:
		return 400
	case ErrForbidden:
		return 403
	case ErrNotFound:
		return 404
	case ErrConflictBuildActive, ErrConflictIdempotent, ErrConflictExists,
		ErrConflictNotCancelable, ErrWorkspaceDormant:
		return 409
	default:
		return 500
	}
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// IsCode reports whether err is an *AppError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

// MissingBuildParametersError is returned when a build cannot be created
// until the user supplies values for Parameters. VersionID is the template
// version the build targeted.
type MissingBuildParametersError struct {
	Parameters []TemplateVersionParameter `json:"parameters"`
	VersionID  string                     `json:"version_id"`
}

func (e *MissingBuildParametersError) Error() string {
	names := make([]string, len(e.Parameters))
	for i, p := range e.Parameters {
		names[i] = p.Name
	}
	return fmt.Sprintf("missing build parameters: %s", strings.Join(names, ", "))
}

// ErrorMessage returns the server-provided message carried by err, or
// fallback when err did not come from the API.
func ErrorMessage(err error, fallback string) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
