package auth

import (
	"fmt"
	"log/slog"

	"github.com/objectstream/objectstream/server/internal/config"
)

// FromConfig builds the Validator selected by cfg.Mode. Mode "none" (or
// empty) returns a nil Validator, which disables the gate.
func FromConfig(cfg config.AuthConfig) (Validator, error) {
	switch cfg.Mode {
	case config.AuthNone, "":
		return nil, nil

	case config.AuthAPIKey:
		key := cfg.Key()
		if key == "" {
			slog.Warn("auth: api key env var is empty, every request will be rejected",
				"key_env", cfg.KeyEnv)
		}
		return NewAPIKeyValidator(key), nil

	case config.AuthOIDC:
		o := cfg.OIDC
		return NewIntrospectionValidator(o.Endpoint(), o.ClientID, o.ClientSecret(), o.Timeout), nil

	case config.AuthJWT:
		j := cfg.JWT
		if j.PublicKeyFile != "" {
			v, err := LoadRSAValidator(j.PublicKeyFile, j.Issuer, j.Audience)
			if err != nil {
				return nil, fmt.Errorf("auth: %w", err)
			}
			return v, nil
		}
		secret := j.Secret()
		if secret == "" {
			return nil, fmt.Errorf("auth: jwt secret env %q is empty", j.SecretEnv)
		}
		return NewHMACValidator([]byte(secret), j.Issuer, j.Audience), nil

	default:
		return nil, fmt.Errorf("auth: unknown mode %q", cfg.Mode)
	}
}
