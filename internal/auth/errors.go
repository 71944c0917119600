package auth

import (
	"errors"
	"net/http"
)

// Error codes carried by *Error.
const (
	CodeHeaderMissing = "authorization_header_missing"
	CodeInvalidHeader = "invalid_header"
	CodeInvalidClaims = "invalid_claims"
	CodeTokenExpired  = "token_expired"
	CodeUnauthorized  = "unauthorized"
)

// Error is the single failure type produced by the authorization pipeline.
// StatusCode is the HTTP status the boundary should respond with.
type Error struct {
	Code        string
	Description string
	StatusCode  int

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Description + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Description
}

// Unwrap exposes the underlying library error, if any, for logging.
func (e *Error) Unwrap() error { return e.cause }

// Is matches on Code and StatusCode so callers can compare against the exported kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode && (t.Description == "" || e.Description == t.Description)
}

func newError(code, description string, status int, cause error) *Error {
	return &Error{Code: code, Description: description, StatusCode: status, cause: cause}
}

// Kinds usable as errors.Is targets. Description is left empty so any message matches.
var (
	ErrHeaderMissing     = &Error{Code: CodeHeaderMissing, StatusCode: http.StatusUnauthorized}
	ErrMalformed         = &Error{Code: CodeInvalidHeader, StatusCode: http.StatusUnauthorized}
	ErrUnparseable       = &Error{Code: CodeInvalidHeader, StatusCode: http.StatusBadRequest}
	ErrInvalidClaims     = &Error{Code: CodeInvalidClaims, StatusCode: http.StatusUnauthorized}
	ErrMissingPermission = &Error{Code: CodeInvalidClaims, StatusCode: http.StatusBadRequest}
	ErrExpired           = &Error{Code: CodeTokenExpired, StatusCode: http.StatusUnauthorized}
	ErrForbidden         = &Error{Code: CodeUnauthorized, StatusCode: http.StatusForbidden}
)

const (
	msgHeaderMissing    = "Authorization header is expected."
	msgBadScheme        = `Authorization header must start with "Bearer".`
	msgTokenNotFound    = "Token not found."
	msgNotBearer        = "Authorization header must be bearer token."
	msgNoKeyID          = "Authorization malformed."
	msgKeyNotFound      = "Unable to find the appropriate key."
	msgUnparseable      = "Unable to parse authentication token."
	msgKeySetFailed     = "Unable to fetch the signing keys."
	msgTokenExpired     = "Token expired."
	msgIncorrectClaims  = "Incorrect claims. Please, check the audience and issuer."
	msgNoPermissions    = "Permissions not included in JWT."
	msgPermissionAbsent = "Permission not found."
)

func errHeaderMissing() *Error {
	return newError(CodeHeaderMissing, msgHeaderMissing, http.StatusUnauthorized, nil)
}

func errMalformedHeader(msg string) *Error {
	return newError(CodeInvalidHeader, msg, http.StatusUnauthorized, nil)
}

func errNoKeyID() *Error {
	return newError(CodeInvalidHeader, msgNoKeyID, http.StatusUnauthorized, nil)
}

func errKeyNotFound() *Error {
	return newError(CodeInvalidHeader, msgKeyNotFound, http.StatusBadRequest, nil)
}

func errUnparseable(cause error) *Error {
	return newError(CodeInvalidHeader, msgUnparseable, http.StatusBadRequest, cause)
}

func errKeySetUnavailable(cause error) *Error {
	return newError(CodeInvalidHeader, msgKeySetFailed, http.StatusUnauthorized, cause)
}

func errExpired(cause error) *Error {
	return newError(CodeTokenExpired, msgTokenExpired, http.StatusUnauthorized, cause)
}

func errIncorrectClaims(cause error) *Error {
	return newError(CodeInvalidClaims, msgIncorrectClaims, http.StatusUnauthorized, cause)
}

func errNoPermissions() *Error {
	return newError(CodeInvalidClaims, msgNoPermissions, http.StatusBadRequest, nil)
}

func errPermissionDenied() *Error {
	return newError(CodeUnauthorized, msgPermissionAbsent, http.StatusForbidden, nil)
}

// AsError extracts the *Error from err, wrapping anything else as an unparseable token.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return errUnparseable(err)
}
