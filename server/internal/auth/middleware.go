package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/objectstream/objectstream/server/internal/metrics"
)

// Middleware returns a handler wrapper that admits only requests whose bearer
// token v accepts. With a nil v the wrapper is the identity.
//
// Responses on rejection:
//   - no token:           401 {"detail":"Not authenticated"}
//   - ErrInvalidToken:    401 {"detail":"Invalid or expired token"}
//   - any other error:    503 {"detail":"Identity provider unavailable"}
func Middleware(v Validator, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				m.AuthRejected("missing")
				unauthorized(w, "Not authenticated")
				return
			}

			claims, err := v.Validate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingToken):
				slog.Debug("auth: token rejected", "path", r.URL.Path, "err", err)
				m.AuthRejected("invalid")
				unauthorized(w, "Invalid or expired token")
				return
			default:
				slog.Warn("auth: token validation failed", "path", r.URL.Path, "err", err)
				m.AuthRejected("unavailable")
				writeDetail(w, http.StatusServiceUnavailable, "Identity provider unavailable")
				return
			}

			if claims == nil {
				claims = Claims{}
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken extracts the credential from the Authorization header. For
// WebSocket handshakes, where browsers cannot set headers, the access_token
// query parameter is accepted as well.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail}) //nolint:errcheck
}
