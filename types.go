package authclient

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface this package depends on. Wire an
// adapter (see adapters/zaplog) to integrate with a structured logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is durable key/value persistence for the bearer token and
// the serialized user record. Implementations must treat malformed stored
// data as absent rather than failing the caller.
type CredentialStore interface {
	// Save writes both values. Callers observe the write as atomic: a
	// concurrent Load sees either the previous pair or the new pair.
	Save(ctx context.Context, token string, user *User) error
	// Load returns the persisted pair, or ("", nil, nil) when absent or
	// unreadable. Corrupt entries are dropped in place.
	Load(ctx context.Context) (string, *User, error)
	// Clear removes both values and any session-scoped leftovers.
	Clear(ctx context.Context) error
}

// Navigator is the port through which the session layer asks the embedding
// shell to change views. A browser shell maps this onto its router; tests
// use a recording fake.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// AuthAPI is the outbound surface the session machine drives. APIClient is
// the production implementation.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*AuthPayload, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterPayload, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error)
	ChangePassword(ctx context.Context, current, next string) error
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
