package authclient_test

import (
	"fmt"
	"testing"

	authclient "github.com/facilitydesk/go-authclient"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		matcher func(error) bool
	}{
		{"network", authclient.ErrNetwork, authclient.IsNetworkError},
		{"server", authclient.ErrServerUnavailable, authclient.IsServerError},
		{"rate limit", authclient.ErrRateLimited, authclient.IsRateLimitError},
		{"not found", authclient.ErrNotFound, authclient.IsNotFoundError},
		{"forbidden", authclient.ErrForbidden, authclient.IsForbiddenError},
		{"session expired", authclient.ErrSessionExpired, authclient.IsAuthError},
		{"malformed response", authclient.ErrMalformedResponse, authclient.IsMalformedResponseError},
		{"missing credentials", authclient.ErrMissingCredentials, authclient.IsValidationError},
	}

	matchers := []func(error) bool{
		authclient.IsNetworkError,
		authclient.IsServerError,
		authclient.IsRateLimitError,
		authclient.IsNotFoundError,
		authclient.IsForbiddenError,
		authclient.IsAuthError,
		authclient.IsMalformedResponseError,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.matcher(tt.err))

			// No sentinel may satisfy a matcher for a different class.
			hits := 0
			for _, match := range matchers {
				if match(tt.err) {
					hits++
				}
			}
			assert.LessOrEqual(t, hits, 1)
		})
	}
}

func TestErrorMatchersRejectForeignErrors(t *testing.T) {
	plain := fmt.Errorf("disk on fire")

	assert.False(t, authclient.IsNetworkError(plain))
	assert.False(t, authclient.IsAuthError(plain))
	assert.False(t, authclient.IsValidationError(plain))
	assert.False(t, authclient.IsNetworkError(nil))
}

func TestErrorMatchersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("bootstrap: %w", authclient.ErrSessionExpired)
	assert.True(t, authclient.IsAuthError(wrapped))
}

func TestSentinelMessagesAreUserFacing(t *testing.T) {
	var richErr *goerrors.Error

	require.True(t, goerrors.As(authclient.ErrServerUnavailable, &richErr))
	assert.Equal(t, authclient.MsgServerError, richErr.Message)

	require.True(t, goerrors.As(authclient.ErrSessionExpired, &richErr))
	assert.Equal(t, authclient.MsgSessionExpired, richErr.Message)

	require.True(t, goerrors.As(authclient.ErrMissingCredentials, &richErr))
	assert.Equal(t, authclient.MsgMissingCredential, richErr.Message)
}

func TestSentinelCategories(t *testing.T) {
	var richErr *goerrors.Error

	require.True(t, goerrors.As(authclient.ErrSessionExpired, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)

	require.True(t, goerrors.As(authclient.ErrForbidden, &richErr))
	assert.Equal(t, goerrors.CategoryAuthz, richErr.Category)

	require.True(t, goerrors.As(authclient.ErrMissingCredentials, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
}
