package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator verifies signed tokens locally. It accepts HS256 when built
// with a shared secret and RS256 when built with an RSA public key.
type JWTValidator struct {
	key    any
	parser *jwt.Parser
}

// NewHMACValidator returns a validator for HS256 tokens signed with secret.
// issuer and audience are enforced when non-empty.
func NewHMACValidator(secret []byte, issuer, audience string) *JWTValidator {
	return &JWTValidator{
		key:    secret,
		parser: newParser(jwt.SigningMethodHS256.Alg(), issuer, audience),
	}
}

// NewRSAValidator returns a validator for RS256 tokens signed by the holder
// of pub's private key.
func NewRSAValidator(pub *rsa.PublicKey, issuer, audience string) *JWTValidator {
	return &JWTValidator{
		key:    pub,
		parser: newParser(jwt.SigningMethodRS256.Alg(), issuer, audience),
	}
}

// LoadRSAValidator reads a PEM-encoded RSA public key from path.
func LoadRSAValidator(path, issuer, audience string) (*JWTValidator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read public key %q: %w", path, err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse public key %q: %w", path, err)
	}
	return NewRSAValidator(pub, issuer, audience), nil
}

func newParser(alg, issuer, audience string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return jwt.NewParser(opts...)
}

// Validate checks the signature, expiry and any configured issuer and
// audience. Every failure is reported as ErrInvalidToken.
func (v *JWTValidator) Validate(_ context.Context, token string) (Claims, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w: %w", ErrInvalidToken, err)
	}
	return Claims(claims), nil
}
