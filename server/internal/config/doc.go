// Package config loads the objectstream-server configuration from the
// `server:` section of a YAML file.
//
// Config fields:
//   - Host, HTTPPort: bind address for the HTTP listener (default :8000)
//   - LogLevel: debug | info | warn | error (hot-reloadable)
//   - CORS: optional cross-origin policy; off by default
//   - Auth.Mode: none | apikey | oidc | jwt
//   - Stream: WebSocket write deadline and ping/pong timings
//   - Metrics: Prometheus exposition path
//   - Telemetry: OTLP/HTTP trace export; disabled when endpoint is empty
//
// Secrets are never read from the file itself: *_env fields name the
// environment variable that holds them.
//
// Load(path) applies defaults before unmarshalling, then validates. An empty
// path yields the defaults. Watch(ctx, path, fn) re-runs Load on every write.
package config
