package errors

import (
	goerrors "errors"
	"net/http"
)

// APIError is the JSON body of every failed REST call.
type APIError struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e APIError) Error() string { return e.Message }

// Codes shared with the web client.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type mapping struct {
	target error
	status int
	code   string
}

var mappings = []mapping{
	{ErrAuthenticationRequired, http.StatusUnauthorized, CodeUnauthorized},
	{ErrInvalidCredential, http.StatusUnauthorized, CodeInvalidToken},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeUnauthorized},
	{ErrIdentityNotFound, http.StatusNotFound, CodeNotFound},
	{ErrProjectNotFound, http.StatusNotFound, CodeNotFound},
	{ErrNotAuthorized, http.StatusForbidden, CodeForbidden},
	{ErrHistoryForbidden, http.StatusForbidden, CodeForbidden},
	{ErrNotOwner, http.StatusForbidden, CodeForbidden},
	{ErrUserAlreadyExists, http.StatusConflict, CodeConflict},
	{ErrAlreadyMember, http.StatusConflict, CodeConflict},
	{ErrProjectIDRequired, http.StatusBadRequest, CodeBadRequest},
	{ErrInvalidStoreKey, http.StatusBadRequest, CodeBadRequest},
	{ErrInvalidPassword, http.StatusBadRequest, CodeValidation},
	{ErrInvalidRequest, http.StatusBadRequest, CodeValidation},
}

// ToAPIError maps a service error to its HTTP status and code.
// Unknown errors become a 500 without leaking their text.
func ToAPIError(err error) APIError {
	var apiErr APIError
	if goerrors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range mappings {
		if goerrors.Is(err, m.target) {
			return APIError{Status: m.status, Message: m.target.Error(), Code: m.code}
		}
	}
	return APIError{Status: http.StatusInternalServerError, Message: "Internal server error", Code: CodeInternal}
}

// NotFoundRoute is returned for any unknown path.
func NotFoundRoute() APIError {
	return APIError{Status: http.StatusNotFound, Message: "Route not found", Code: CodeNotFound}
}

// BadRequest wraps a decoding or validation problem of a request body.
func BadRequest(message string) APIError {
	return APIError{Status: http.StatusBadRequest, Message: message, Code: CodeBadRequest}
}
