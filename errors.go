package authclient

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeNetwork           = "NETWORK_ERROR"
	textCodeServerUnavailable = "SERVER_UNAVAILABLE"
	textCodeRateLimited       = "RATE_LIMITED"
	textCodeNotFound          = "RESOURCE_NOT_FOUND"
	textCodeForbidden         = "FORBIDDEN"
	textCodeSessionExpired    = "SESSION_EXPIRED"
	textCodeMalformedResponse = "MALFORMED_RESPONSE"
	textCodeMissingFields     = "MISSING_REQUIRED_FIELDS"
)

// User-facing messages surfaced at the HTTP boundary. Raw server internals
// never leak past the client.
const (
	MsgNetworkError      = "Network error. Please check your connection and try again."
	MsgServerError       = "Server error. Please try again later."
	MsgRateLimited       = "Too many requests. Please wait a moment and try again."
	MsgNotFound          = "The requested resource was not found."
	MsgForbidden         = "You do not have permission to perform this action."
	MsgSessionExpired    = "Your session has expired. Please log in again."
	MsgInvalidResponse   = "Invalid response from server"
	MsgLoginFailed       = "Login failed"
	MsgMissingCredential = "Email and password are required"
)

// ErrNetwork is returned when no response was received (connection refused,
// DNS failure, request deadline exceeded).
var ErrNetwork = errors.New(MsgNetworkError, errors.CategoryOperation).
	WithTextCode(textCodeNetwork)

// ErrServerUnavailable covers any 5xx from the API.
var ErrServerUnavailable = errors.New(MsgServerError, errors.CategoryInternal).
	WithTextCode(textCodeServerUnavailable).
	WithCode(errors.CodeInternal)

// ErrRateLimited covers 429 responses.
var ErrRateLimited = errors.New(MsgRateLimited, errors.CategoryRateLimit).
	WithTextCode(textCodeRateLimited)

// ErrNotFound covers 404 responses.
var ErrNotFound = errors.New(MsgNotFound, errors.CategoryNotFound).
	WithTextCode(textCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrForbidden covers 403 responses; the caller is authenticated but the
// role does not permit the action.
var ErrForbidden = errors.New(MsgForbidden, errors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrSessionExpired covers 401 responses; the bearer token was rejected and
// the local session has been torn down.
var ErrSessionExpired = errors.New(MsgSessionExpired, errors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedResponse is returned on a 2xx whose body is missing fields the
// operation cannot proceed without (e.g. login success without a token).
var ErrMalformedResponse = errors.New(MsgInvalidResponse, errors.CategoryBadInput).
	WithTextCode(textCodeMalformedResponse)

// ErrMissingCredentials is the local validation failure for a login attempt
// without email or password. No network call is made.
var ErrMissingCredentials = errors.New(MsgMissingCredential, errors.CategoryValidation).
	WithTextCode(textCodeMissingFields).
	WithCode(errors.CodeBadRequest)

// withMeta attaches metadata to a copy of a sentinel. The sentinels are
// shared package state and must never be mutated.
func withMeta(base *errors.Error, meta map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsNetworkError reports whether err means no usable response was received.
func IsNetworkError(err error) bool {
	return hasTextCode(err, textCodeNetwork)
}

// IsAuthError reports whether err is a rejected bearer token (401).
func IsAuthError(err error) bool {
	return hasTextCode(err, textCodeSessionExpired)
}

// IsForbiddenError reports whether err is a role/permission denial (403).
func IsForbiddenError(err error) bool {
	return hasTextCode(err, textCodeForbidden)
}

// IsRateLimitError reports whether err is a 429.
func IsRateLimitError(err error) bool {
	return hasTextCode(err, textCodeRateLimited)
}

// IsServerError reports whether err is a 5xx.
func IsServerError(err error) bool {
	return hasTextCode(err, textCodeServerUnavailable)
}

// IsNotFoundError reports whether err is a 404.
func IsNotFoundError(err error) bool {
	return hasTextCode(err, textCodeNotFound)
}

// IsMalformedResponseError reports whether err is a 2xx with missing fields.
func IsMalformedResponseError(err error) bool {
	return hasTextCode(err, textCodeMalformedResponse)
}

// IsValidationError reports whether err is a client-side validation failure.
func IsValidationError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryValidation
}
