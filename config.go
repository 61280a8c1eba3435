package authclient

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetLoginRoute() string
	GetUnauthorizedRoute() string
	GetDefaultRoute() string
	GetTokenKey() string
	GetUserKey() string
}

// EnvConfig is the environment-driven Config implementation. Defaults match
// the development API server.
type EnvConfig struct {
	BaseURL           string        `env:"AUTH_API_BASE_URL" envDefault:"http://localhost:3001/api"`
	RequestTimeout    time.Duration `env:"AUTH_REQUEST_TIMEOUT" envDefault:"15s"`
	LoginRoute        string        `env:"AUTH_LOGIN_ROUTE" envDefault:"/login"`
	UnauthorizedRoute string        `env:"AUTH_UNAUTHORIZED_ROUTE" envDefault:"/unauthorized"`
	DefaultRoute      string        `env:"AUTH_DEFAULT_ROUTE" envDefault:"/dashboard"`
	TokenKey          string        `env:"AUTH_TOKEN_KEY" envDefault:"token"`
	UserKey           string        `env:"AUTH_USER_KEY" envDefault:"user"`
}

// LoadConfig reads configuration from the environment, picking up a local
// .env file when one exists.
func LoadConfig() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse auth client environment")
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without consulting the
// environment. Useful in tests and embedded setups.
func DefaultConfig() *EnvConfig {
	return &EnvConfig{
		BaseURL:           "http://localhost:3001/api",
		RequestTimeout:    15 * time.Second,
		LoginRoute:        "/login",
		UnauthorizedRoute: "/unauthorized",
		DefaultRoute:      "/dashboard",
		TokenKey:          "token",
		UserKey:           "user",
	}
}

func (c *EnvConfig) GetBaseURL() string               { return c.BaseURL }
func (c *EnvConfig) GetRequestTimeout() time.Duration { return c.RequestTimeout }
func (c *EnvConfig) GetLoginRoute() string            { return c.LoginRoute }
func (c *EnvConfig) GetUnauthorizedRoute() string     { return c.UnauthorizedRoute }
func (c *EnvConfig) GetDefaultRoute() string          { return c.DefaultRoute }
func (c *EnvConfig) GetTokenKey() string              { return c.TokenKey }
func (c *EnvConfig) GetUserKey() string               { return c.UserKey }
