package authclient_test

import (
	"testing"
	"time"

	authclient "github.com/facilitydesk/go-authclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := authclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001/api", cfg.GetBaseURL())
	assert.Equal(t, 15*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, "/login", cfg.GetLoginRoute())
	assert.Equal(t, "/unauthorized", cfg.GetUnauthorizedRoute())
	assert.Equal(t, "/dashboard", cfg.GetDefaultRoute())
	assert.Equal(t, "token", cfg.GetTokenKey())
	assert.Equal(t, "user", cfg.GetUserKey())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_API_BASE_URL", "https://api.facilitydesk.io/v1")
	t.Setenv("AUTH_REQUEST_TIMEOUT", "3s")
	t.Setenv("AUTH_LOGIN_ROUTE", "/signin")

	cfg, err := authclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.facilitydesk.io/v1", cfg.GetBaseURL())
	assert.Equal(t, 3*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, "/signin", cfg.GetLoginRoute())
	assert.Equal(t, "/unauthorized", cfg.GetUnauthorizedRoute())
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("AUTH_REQUEST_TIMEOUT", "soon")

	_, err := authclient.LoadConfig()
	assert.Error(t, err)
}

func TestDefaultConfigMatchesEnvDefaults(t *testing.T) {
	loaded, err := authclient.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, loaded, authclient.DefaultConfig())
}
