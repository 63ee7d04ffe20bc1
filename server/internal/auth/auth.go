package auth

import (
	"context"
	"errors"
)

var (
	// ErrMissingToken means the request carried no bearer credential.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken means the credential was checked and rejected: bad
	// signature, expired, revoked, or unknown to the identity provider.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is whatever the validator learned about the token holder.
type Claims map[string]any

// Subject returns the "sub" claim, or "".
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// Validator checks a bearer token. Implementations return ErrInvalidToken
// (possibly wrapped) for a rejected token and any other error when the check
// itself could not be completed.
type Validator interface {
	Validate(ctx context.Context, token string) (Claims, error)
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ctx context.Context, token string) (Claims, error)

func (f ValidatorFunc) Validate(ctx context.Context, token string) (Claims, error) {
	return f(ctx, token)
}

type ctxKey struct{}

// WithClaims returns a copy of ctx carrying c.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claims)
	return c, ok
}
