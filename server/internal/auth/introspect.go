package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IntrospectionValidator asks an OAuth 2.0 identity provider whether a token
// is active (RFC 7662). Keycloak exposes this at
// {issuer}/realms/{realm}/protocol/openid-connect/token/introspect.
type IntrospectionValidator struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewIntrospectionValidator returns a validator posting to endpoint with the
// given client credentials. timeout bounds each call; zero means no bound
// beyond the request context.
func NewIntrospectionValidator(endpoint, clientID, clientSecret string, timeout time.Duration) *IntrospectionValidator {
	return &IntrospectionValidator{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Validate posts the token to the introspection endpoint. An inactive token
// yields ErrInvalidToken; transport failures and non-200 responses are
// returned as plain errors so the gate can tell them apart.
func (v *IntrospectionValidator) Validate(ctx context.Context, token string) (Claims, error) {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
		"client_id":       {v.clientID},
	}
	if v.clientSecret != "" {
		form.Set("client_secret", v.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("introspect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10)) //nolint:errcheck
		return nil, fmt.Errorf("introspect: unexpected status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&claims); err != nil {
		return nil, fmt.Errorf("introspect: decode response: %w", err)
	}

	if active, _ := claims["active"].(bool); !active {
		return nil, fmt.Errorf("introspect: token inactive: %w", ErrInvalidToken)
	}
	delete(claims, "active")
	return claims, nil
}
