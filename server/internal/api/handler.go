package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/objectstream/objectstream/server/internal/metrics"
	"github.com/objectstream/objectstream/server/internal/store"
)

// maxBodyBytes caps the size of a create request body.
const maxBodyBytes = 2 << 20

const deletePrefix = "/delete_object/"

// Handler is the HTTP handler for the object API routes.
type Handler struct {
	store   *store.Store
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

// New creates a Handler wired to the given object store and registers all
// routes. m may be nil.
func New(st *store.Store, m *metrics.Metrics) http.Handler {
	h := &Handler{store: st, metrics: m, mux: http.NewServeMux()}

	h.mux.HandleFunc("/add_object", h.addObject)
	h.mux.HandleFunc("/object_list", h.listObjects)
	h.mux.HandleFunc(deletePrefix, h.deleteObject) // subtree, carries {object_uuid}

	m.SetObjects(st.Count())
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// addObject handles POST /add_object.
func (h *Handler) addObject(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	obj, err := decodeObject(w, r)
	if err != nil {
		h.metrics.ObjectOp("create", metrics.ResultInvalid)
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := h.store.Create(obj)
	switch {
	case errors.Is(err, store.ErrConflict):
		h.metrics.ObjectOp("create", metrics.ResultConflict)
		jsonErr(w, http.StatusConflict, "Object already exists")
		return
	case errors.Is(err, store.ErrInvalidUUID):
		h.metrics.ObjectOp("create", metrics.ResultInvalid)
		jsonErr(w, http.StatusUnprocessableEntity, "uuid must be a string")
		return
	case err != nil:
		slog.Error("api: create failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.metrics.ObjectOp("create", metrics.ResultOK)
	h.metrics.SetObjects(h.store.Count())
	jsonResp(w, http.StatusOK, MessageResponse{Message: "Object added", UUID: id})
}

// listObjects handles GET /object_list.
func (h *Handler) listObjects(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.metrics.ObjectOp("list", metrics.ResultOK)
	jsonResp(w, http.StatusOK, ListResponse{Objects: h.store.List()})
}

// deleteObject handles DELETE /delete_object/{object_uuid}.
func (h *Handler) deleteObject(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodDelete) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, deletePrefix)
	if id == "" {
		h.metrics.ObjectOp("delete", metrics.ResultNotFound)
		jsonErr(w, http.StatusNotFound, "Object not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.ObjectOp("delete", metrics.ResultNotFound)
			jsonErr(w, http.StatusNotFound, "Object not found")
			return
		}
		slog.Error("api: delete failed", "uuid", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.metrics.ObjectOp("delete", metrics.ResultOK)
	h.metrics.SetObjects(h.store.Count())
	jsonResp(w, http.StatusOK, MessageResponse{Message: "Object deleted", UUID: id})
}

// --- helpers ----------------------------------------------------------------

// SessionCounter reports the number of open stream sessions.
type SessionCounter interface {
	Count() int
}

// Health returns the GET /healthz handler. sessions may be nil.
func Health(st *store.Store, sessions SessionCounter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		resp := HealthResponse{Status: "ok", Objects: st.Count()}
		if sessions != nil {
			resp.StreamSessions = sessions.Count()
		}
		jsonResp(w, http.StatusOK, resp)
	})
}

// decodeObject reads the request body as a single JSON object. Numbers are
// kept as json.Number so integers survive the round trip unchanged.
func decodeObject(w http.ResponseWriter, r *http.Request) (store.Object, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}
		return nil, errors.New("request body is not valid JSON")
	}
	if dec.More() {
		return nil, errors.New("request body must contain a single JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("request body must be a JSON object")
	}
	return store.Object(obj), nil
}

// allow writes a 405 and returns false unless r uses method.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	jsonErr(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	return false
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Detail: msg})
}
