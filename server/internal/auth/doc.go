// Package auth provides the bearer-token authorization gate for
// objectstream-server.
//
// Middleware(v, m) wraps an http.Handler. It extracts the credential from
// "Authorization: Bearer <token>" (or the access_token query parameter on
// WebSocket handshakes) and asks the Validator v whether it is valid. A
// rejected request never reaches the wrapped handler. An admitted one
// carries the returned Claims in its context (ClaimsFromContext).
//
// Validators:
//   - APIKeyValidator: constant-time comparison against a static key
//   - IntrospectionValidator: RFC 7662 introspection against an identity provider
//   - JWTValidator: local HS256/RS256 signature and claim validation
//
// FromConfig builds the validator selected by the auth mode; mode "none"
// yields a nil Validator, meaning no gate.
package auth
