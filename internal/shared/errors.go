package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable code carried by every auth failure
type ErrorCode string

const (
	CodeAuthMisconfigured        ErrorCode = "auth_misconfigured"
	CodeMissingToken             ErrorCode = "missing_token"
	CodeInvalidToken             ErrorCode = "invalid_token"
	CodeForbiddenClient          ErrorCode = "forbidden_client"
	CodeForbiddenApp             ErrorCode = "forbidden_app"
	CodeForbiddenEnv             ErrorCode = "forbidden_env"
	CodeForbiddenScope           ErrorCode = "forbidden_scope"
	CodeIdentityResolutionFailed ErrorCode = "identity_resolution_failed"
)

// Status returns the HTTP status a code maps to
func (c ErrorCode) Status() int {
	switch c {
	case CodeMissingToken, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbiddenClient, CodeForbiddenApp, CodeForbiddenEnv, CodeForbiddenScope:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AuthError is a structured authentication error with an HTTP status and a code
type AuthError struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AuthError with the same code
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewAuthError creates an AuthError whose status is derived from the code
func NewAuthError(code ErrorCode, message string) *AuthError {
	return &AuthError{
		Code:    code,
		Status:  code.Status(),
		Message: message,
	}
}

// WrapAuthError creates an AuthError that wraps an underlying cause
func WrapAuthError(code ErrorCode, message string, err error) *AuthError {
	return &AuthError{
		Code:    code,
		Status:  code.Status(),
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is comparisons; matching is by code only
var (
	ErrAuthMisconfigured        = NewAuthError(CodeAuthMisconfigured, "authentication is misconfigured")
	ErrMissingToken             = NewAuthError(CodeMissingToken, "missing bearer token")
	ErrInvalidToken             = NewAuthError(CodeInvalidToken, "invalid token")
	ErrForbiddenClient          = NewAuthError(CodeForbiddenClient, "client is not allowed")
	ErrForbiddenApp             = NewAuthError(CodeForbiddenApp, "token was not issued for this app")
	ErrForbiddenEnv             = NewAuthError(CodeForbiddenEnv, "token was not issued for this environment")
	ErrForbiddenScope           = NewAuthError(CodeForbiddenScope, "token is missing required scopes")
	ErrIdentityResolutionFailed = NewAuthError(CodeIdentityResolutionFailed, "failed to resolve identity")
)

// AsAuthError extracts an AuthError from an error chain
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// CodeOf returns the code of an AuthError, or empty string if err is not one
func CodeOf(err error) ErrorCode {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.Code
	}
	return ""
}

// StatusOf returns the HTTP status for err, defaulting to 500 for unstructured errors
func StatusOf(err error) int {
	if authErr, ok := AsAuthError(err); ok {
		if authErr.Status != 0 {
			return authErr.Status
		}
		return authErr.Code.Status()
	}
	return http.StatusInternalServerError
}
