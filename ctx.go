package authclient

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithSessionContext sets the Session snapshot in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session snapshot from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// WithUserContext sets the User in the given context
func WithUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the user from the context. It falls back to the
// session snapshot when no user was attached directly.
func UserFromContext(ctx context.Context) (*User, bool) {
	if user, ok := ctx.Value(userCtxKey).(*User); ok {
		return user, true
	}
	if session, ok := SessionFromContext(ctx); ok && session.User != nil {
		return session.User, true
	}
	return nil, false
}

// HasRole checks the context session's role directly. An unauthenticated
// session never has a role.
func HasRole(ctx context.Context, roles ...Role) bool {
	session, ok := SessionFromContext(ctx)
	if !ok || !session.IsAuthenticated() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return RoleIn(session.Role(), roles)
}
