package app

import (
	"net/http"
	"slices"

	"github.com/rs/cors"

	"github.com/objectstream/objectstream/server/internal/api"
	"github.com/objectstream/objectstream/server/internal/auth"
	"github.com/objectstream/objectstream/server/internal/config"
	"github.com/objectstream/objectstream/server/internal/metrics"
	"github.com/objectstream/objectstream/server/internal/store"
	"github.com/objectstream/objectstream/server/internal/telemetry"
	"github.com/objectstream/objectstream/server/internal/ws"
)

// Deps are the long-lived components the handler routes to.
type Deps struct {
	Store     *store.Store
	Hub       *ws.Hub
	Validator auth.Validator // nil disables the gate
	Metrics   *metrics.Metrics
}

// NewHandler builds the root handler. Object routes and the stream endpoint
// sit behind the authorization gate; /healthz and the metrics path do not.
func NewHandler(cfg config.ServerConfig, d Deps) http.Handler {
	gate := auth.Middleware(d.Validator, d.Metrics)
	objects := api.New(d.Store, d.Metrics)

	mux := http.NewServeMux()
	mux.Handle("/add_object", gate(objects))
	mux.Handle("/object_list", gate(objects))
	mux.Handle("/delete_object/", gate(objects))
	mux.Handle("/ws", gate(d.Hub))
	mux.Handle("/healthz", api.Health(d.Store, d.Hub))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, d.Metrics.Handler())
	}

	var h http.Handler = mux
	if cfg.CORS.Enabled {
		h = newCORS(cfg.CORS).Handler(h)
	}
	return telemetry.WrapHandler(cfg.Telemetry.ServiceName, h)
}

// OriginCheck returns the WebSocket origin policy matching the CORS config,
// or nil when any origin is acceptable.
func OriginCheck(c config.CORSConfig) func(*http.Request) bool {
	if !c.Enabled || len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		return origin == "" || slices.Contains(c.AllowedOrigins, origin)
	}
}

// newCORS maps the config onto rs/cors options. Empty lists mean "allow
// everything", matching the permissive default of the secured deployment.
func newCORS(c config.CORSConfig) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		AllowCredentials: c.AllowCredentials,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = []string{"*"}
	}
	return cors.New(opts)
}
