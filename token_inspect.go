package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenInfo is the readable portion of a bearer token. The token is treated
// as opaque for authorization purposes; only the server's verdict counts.
// This exists for diagnostics and for UIs that want to surface expiry.
type TokenInfo struct {
	Subject   string
	Issuer    string
	Role      string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token's recorded expiry has passed. A token
// without an expiry claim is never considered expired here.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Before(now)
}

// InspectToken decodes the token's claims WITHOUT verifying its signature.
// Never use the result to grant access: the profile-verification endpoint is
// the only authority on whether a token is still good.
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to decode token claims")
	}

	info := &TokenInfo{}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = &iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = &exp.Time
	}

	return info, nil
}
