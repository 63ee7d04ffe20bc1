package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthNone   = "none"
	AuthAPIKey = "apikey"
	AuthOIDC   = "oidc"
	AuthJWT    = "jwt"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 8000
	DefaultLogLevel     = "info"
	DefaultWriteTimeout = 10 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultPingPeriod   = (DefaultPongWait * 9) / 10
	DefaultOIDCTimeout  = 5 * time.Second
	DefaultMetricsPath  = "/metrics"
	DefaultServiceName  = "objectstream"
)

// Config holds the server-side configuration parsed from the `server:` section
// of the config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// Host is the interface to bind; empty means all interfaces.
	Host string `yaml:"host"`

	// HTTPPort is the port the object API and stream endpoint listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	Stream    StreamConfig    `yaml:"stream"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.HTTPPort)
}

// Level parses LogLevel. Unknown values were rejected by validate, so the
// fallback to info only applies to hand-built configs.
func (s ServerConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CORSConfig controls the cross-origin policy. With Enabled set and every
// list empty, all origins, methods and headers are allowed.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// AuthConfig controls bearer-token authorization of incoming requests.
type AuthConfig struct {
	// Mode is one of: none | apikey | oidc | jwt.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// bearer key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	OIDC OIDCConfig `yaml:"oidc"`
	JWT  JWTConfig  `yaml:"jwt"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// OIDCConfig points at an identity provider's token introspection endpoint.
type OIDCConfig struct {
	// IssuerURL is the identity provider base URL, e.g. https://sso.example.com.
	IssuerURL string `yaml:"issuer_url"`

	// Realm is the Keycloak realm name.
	Realm string `yaml:"realm"`

	ClientID string `yaml:"client_id"`

	// ClientSecretEnv names the environment variable holding the client secret.
	ClientSecretEnv string `yaml:"client_secret_env"`

	// IntrospectionURL overrides the endpoint derived from IssuerURL and Realm.
	IntrospectionURL string `yaml:"introspection_url"`

	// Timeout bounds each introspection call. Default: 5s.
	Timeout time.Duration `yaml:"timeout"`
}

// ClientSecret returns the client secret resolved from the environment.
func (o OIDCConfig) ClientSecret() string {
	if o.ClientSecretEnv == "" {
		return ""
	}
	return os.Getenv(o.ClientSecretEnv)
}

// Endpoint returns the introspection URL.
func (o OIDCConfig) Endpoint() string {
	if o.IntrospectionURL != "" {
		return o.IntrospectionURL
	}
	return strings.TrimRight(o.IssuerURL, "/") + "/realms/" + o.Realm + "/protocol/openid-connect/token/introspect"
}

// JWTConfig configures local validation of signed bearer tokens.
type JWTConfig struct {
	// SecretEnv names the environment variable holding an HS256 shared secret.
	SecretEnv string `yaml:"secret_env"`

	// PublicKeyFile is a PEM-encoded RSA public key for RS256 tokens.
	PublicKeyFile string `yaml:"public_key_file"`

	// Issuer and Audience are checked when non-empty.
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// Secret returns the HS256 secret resolved from the environment.
func (j JWTConfig) Secret() string {
	if j.SecretEnv == "" {
		return ""
	}
	return os.Getenv(j.SecretEnv)
}

// StreamConfig controls WebSocket session timings.
type StreamConfig struct {
	// WriteTimeout is the deadline for a single frame write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PongWait is how long to wait for a pong before treating the peer as gone.
	PongWait time.Duration `yaml:"pong_wait"`

	// PingPeriod is how often a ping frame is sent. Must be less than PongWait.
	PingPeriod time.Duration `yaml:"ping_period"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the host:port of an OTLP/HTTP collector. Empty disables
	// export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// ReservedPaths are the routes the server registers itself. The metrics
// endpoint may not use any of them.
var ReservedPaths = []string{"/add_object", "/object_list", "/delete_object/", "/ws", "/healthz"}

// reservedPath also covers everything below the delete subtree.
func reservedPath(p string) bool {
	if p == "/delete_object" || strings.HasPrefix(p, "/delete_object/") {
		return true
	}
	return slices.Contains(ReservedPaths, p)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Auth: AuthConfig{
				Mode: AuthNone,
				OIDC: OIDCConfig{Timeout: DefaultOIDCTimeout},
			},
			Stream: StreamConfig{
				WriteTimeout: DefaultWriteTimeout,
				PongWait:     DefaultPongWait,
				PingPeriod:   DefaultPingPeriod,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
			Telemetry: TelemetryConfig{
				Insecure:    true,
				ServiceName: DefaultServiceName,
			},
		},
	}
}

// Validate checks structural constraints on the configuration. Load calls it;
// callers that override fields after loading should call it again.
func Validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}

	switch s.Auth.Mode {
	case AuthNone, "":
	case AuthAPIKey:
		if s.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required for mode apikey")
		}
	case AuthOIDC:
		o := s.Auth.OIDC
		if o.IntrospectionURL == "" && (o.IssuerURL == "" || o.Realm == "") {
			return fmt.Errorf("server.auth.oidc needs issuer_url and realm, or introspection_url")
		}
		if o.ClientID == "" {
			return fmt.Errorf("server.auth.oidc.client_id is required")
		}
		if o.Timeout < 0 {
			return fmt.Errorf("server.auth.oidc.timeout must not be negative")
		}
	case AuthJWT:
		if s.Auth.JWT.SecretEnv == "" && s.Auth.JWT.PublicKeyFile == "" {
			return fmt.Errorf("server.auth.jwt needs secret_env or public_key_file")
		}
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want none|apikey|oidc|jwt", s.Auth.Mode)
	}

	if s.Stream.WriteTimeout <= 0 || s.Stream.PongWait <= 0 || s.Stream.PingPeriod <= 0 {
		return fmt.Errorf("server.stream durations must be positive")
	}
	if s.Stream.PingPeriod >= s.Stream.PongWait {
		return fmt.Errorf("server.stream.ping_period %v must be less than pong_wait %v",
			s.Stream.PingPeriod, s.Stream.PongWait)
	}

	if s.Metrics.Enabled {
		if !strings.HasPrefix(s.Metrics.Path, "/") {
			return fmt.Errorf("server.metrics.path %q must start with /", s.Metrics.Path)
		}
		if reservedPath(s.Metrics.Path) {
			return fmt.Errorf("server.metrics.path %q collides with a service route", s.Metrics.Path)
		}
	}
	return nil
}
