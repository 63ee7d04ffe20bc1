package auth

import (
	"context"
	"crypto/subtle"
)

// APIKeyValidator accepts exactly one static bearer key.
type APIKeyValidator struct {
	key []byte
}

// NewAPIKeyValidator returns a validator for key. An empty key rejects every
// token.
func NewAPIKeyValidator(key string) *APIKeyValidator {
	return &APIKeyValidator{key: []byte(key)}
}

func (v *APIKeyValidator) Validate(_ context.Context, token string) (Claims, error) {
	if len(v.key) == 0 || subtle.ConstantTimeCompare([]byte(token), v.key) != 1 {
		return nil, ErrInvalidToken
	}
	return Claims{"sub": "apikey"}, nil
}
