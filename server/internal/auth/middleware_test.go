package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeValidator accepts "good" and rejects everything else. A token of
// "down" simulates an unreachable identity provider.
var fakeValidator = ValidatorFunc(func(_ context.Context, token string) (Claims, error) {
	switch token {
	case "good":
		return Claims{"sub": "alice"}, nil
	case "down":
		return nil, errors.New("dial tcp: connection refused")
	default:
		return nil, ErrInvalidToken
	}
})

// recordingHandler remembers whether it ran and which claims it saw.
type recordingHandler struct {
	called bool
	claims Claims
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.claims, _ = ClaimsFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(t *testing.T, v Validator, req *http.Request) (*httptest.ResponseRecorder, *recordingHandler) {
	t.Helper()
	next := &recordingHandler{}
	rr := httptest.NewRecorder()
	Middleware(v, nil)(next).ServeHTTP(rr, req)
	return rr, next
}

func detailOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body["detail"]
}

func TestMiddleware_NilValidator_PassesThrough(t *testing.T) {
	rr, next := serve(t, nil, httptest.NewRequest(http.MethodGet, "/object_list", nil))
	if !next.called {
		t.Fatal("handler not called")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestMiddleware_ValidToken_Passes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/object_list", nil)
	req.Header.Set("Authorization", "Bearer good")

	rr, next := serve(t, fakeValidator, req)
	if !next.called {
		t.Fatal("handler not called")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
	if next.claims.Subject() != "alice" {
		t.Errorf("claims sub: got %q, want alice", next.claims.Subject())
	}
}

func TestMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/object_list", nil)
	req.Header.Set("Authorization", "bearer good")

	if _, next := serve(t, fakeValidator, req); !next.called {
		t.Fatal("handler not called")
	}
}

func TestMiddleware_MissingHeader_Unauthorized(t *testing.T) {
	rr, next := serve(t, fakeValidator, httptest.NewRequest(http.MethodPost, "/add_object", nil))
	if next.called {
		t.Fatal("handler called without a token")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate: got %q, want Bearer", got)
	}
	if d := detailOf(t, rr); d != "Not authenticated" {
		t.Errorf("detail: got %q", d)
	}
}

func TestMiddleware_WrongScheme_Unauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/object_list", nil)
	req.Header.Set("Authorization", "Basic Z29vZDp4")

	rr, next := serve(t, fakeValidator, req)
	if next.called {
		t.Fatal("handler called with Basic credentials")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestMiddleware_InvalidToken_Unauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/delete_object/x", nil)
	req.Header.Set("Authorization", "Bearer wrong")

	rr, next := serve(t, fakeValidator, req)
	if next.called {
		t.Fatal("handler called with an invalid token")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
	if d := detailOf(t, rr); d != "Invalid or expired token" {
		t.Errorf("detail: got %q", d)
	}
}

func TestMiddleware_ProviderDown_ServiceUnavailable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/object_list", nil)
	req.Header.Set("Authorization", "Bearer down")

	rr, next := serve(t, fakeValidator, req)
	if next.called {
		t.Fatal("handler called while the provider is down")
	}
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
}

func TestMiddleware_WebSocketQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?mean=0&std=1&interval=10&access_token=good", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")

	if _, next := serve(t, fakeValidator, req); !next.called {
		t.Fatal("handler not called for websocket query token")
	}
}

func TestMiddleware_QueryTokenIgnoredForPlainHTTP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/object_list?access_token=good", nil)

	rr, next := serve(t, fakeValidator, req)
	if next.called {
		t.Fatal("handler called with a query token on a plain request")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}
