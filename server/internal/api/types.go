package api

import "github.com/objectstream/objectstream/server/internal/store"

// MessageResponse is the payload for a successful create or delete.
type MessageResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// ListResponse is the payload for GET /object_list.
type ListResponse struct {
	Objects []store.Object `json:"objects"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status         string `json:"status"`
	Objects        int    `json:"objects"`
	StreamSessions int    `json:"stream_sessions"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Detail string `json:"detail"`
}
