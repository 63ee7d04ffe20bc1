package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/objectstream/server/internal/config"
)

func TestAPIKeyValidator(t *testing.T) {
	v := NewAPIKeyValidator("supersecret")

	claims, err := v.Validate(context.Background(), "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "apikey", claims.Subject())

	_, err = v.Validate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAPIKeyValidator_EmptyKeyRejectsAll(t *testing.T) {
	_, err := NewAPIKeyValidator("").Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// introspectionServer fakes an identity provider that knows one active token.
func introspectionServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("client_id") != "objectstream" || r.PostForm.Get("client_secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("token") == "live-token" {
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"active":   true,
				"sub":      "user-1",
				"username": "alice",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"active": false}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIntrospectionValidator_Active(t *testing.T) {
	srv := introspectionServer(t)
	v := NewIntrospectionValidator(srv.URL, "objectstream", "s3cret", time.Second)

	claims, err := v.Validate(context.Background(), "live-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject())
	assert.Equal(t, "alice", claims["username"])
	assert.NotContains(t, claims, "active")
}

func TestIntrospectionValidator_Inactive(t *testing.T) {
	srv := introspectionServer(t)
	v := NewIntrospectionValidator(srv.URL, "objectstream", "s3cret", time.Second)

	_, err := v.Validate(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntrospectionValidator_BadClientCredentials(t *testing.T) {
	srv := introspectionServer(t)
	v := NewIntrospectionValidator(srv.URL, "objectstream", "wrong", time.Second)

	_, err := v.Validate(context.Background(), "live-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken, "provider errors must not look like token rejections")
}

func TestIntrospectionValidator_Unreachable(t *testing.T) {
	srv := introspectionServer(t)
	url := srv.URL
	srv.Close()

	v := NewIntrospectionValidator(url, "objectstream", "s3cret", time.Second)
	_, err := v.Validate(context.Background(), "live-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func signHS256(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestHMACValidator(t *testing.T) {
	secret := []byte("hmac-secret")
	v := NewHMACValidator(secret, "https://sso.example.com/realms/demo", "objectstream")

	good := signHS256(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"iss": "https://sso.example.com/realms/demo",
		"aud": "objectstream",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err := v.Validate(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject())

	cases := map[string]string{
		"expired": signHS256(t, secret, jwt.MapClaims{
			"iss": "https://sso.example.com/realms/demo", "aud": "objectstream",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"no exp": signHS256(t, secret, jwt.MapClaims{
			"iss": "https://sso.example.com/realms/demo", "aud": "objectstream",
		}),
		"wrong issuer": signHS256(t, secret, jwt.MapClaims{
			"iss": "https://evil", "aud": "objectstream",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"wrong audience": signHS256(t, secret, jwt.MapClaims{
			"iss": "https://sso.example.com/realms/demo", "aud": "other",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"wrong secret": signHS256(t, []byte("other"), jwt.MapClaims{
			"iss": "https://sso.example.com/realms/demo", "aud": "objectstream",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
		"garbage": "not.a.jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func writePublicKey(t *testing.T, pub *rsa.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "pub.pem")
	require.NoError(t, os.WriteFile(p, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))
	return p
}

func TestRSAValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v, err := LoadRSAValidator(writePublicKey(t, &key.PublicKey), "", "")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "svc",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "svc", claims.Subject())

	// An HS256 token must not be accepted by an RS256 validator.
	hs := signHS256(t, []byte("x"), jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	_, err = v.Validate(context.Background(), hs)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoadRSAValidator_BadFile(t *testing.T) {
	_, err := LoadRSAValidator("/nonexistent.pem", "", "")
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(p, []byte("not pem"), 0o600))
	_, err = LoadRSAValidator(p, "", "")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	t.Setenv("TEST_API_KEY", "k")
	t.Setenv("TEST_JWT_SECRET", "s")

	v, err := FromConfig(config.AuthConfig{Mode: config.AuthNone})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = FromConfig(config.AuthConfig{Mode: config.AuthAPIKey, KeyEnv: "TEST_API_KEY"})
	require.NoError(t, err)
	assert.IsType(t, &APIKeyValidator{}, v)

	v, err = FromConfig(config.AuthConfig{Mode: config.AuthOIDC, OIDC: config.OIDCConfig{
		IssuerURL: "https://sso", Realm: "demo", ClientID: "c",
	}})
	require.NoError(t, err)
	assert.IsType(t, &IntrospectionValidator{}, v)

	v, err = FromConfig(config.AuthConfig{Mode: config.AuthJWT, JWT: config.JWTConfig{SecretEnv: "TEST_JWT_SECRET"}})
	require.NoError(t, err)
	assert.IsType(t, &JWTValidator{}, v)

	_, err = FromConfig(config.AuthConfig{Mode: config.AuthJWT, JWT: config.JWTConfig{SecretEnv: "UNSET_SECRET_VAR"}})
	assert.Error(t, err)

	_, err = FromConfig(config.AuthConfig{Mode: "oauth2"})
	assert.Error(t, err)
}
