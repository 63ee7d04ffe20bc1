// Package api implements the HTTP object API for objectstream-server.
//
// New(store, metrics) returns an http.Handler that serves:
//
//	POST   /add_object                  store any JSON object; assigns uuid if absent
//	GET    /object_list                 all objects in insertion order
//	DELETE /delete_object/{object_uuid} remove one object; 404 if unknown
//
// Health(store, sessions) serves GET /healthz.
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 {"detail": ...} for the wrong method
//   - Report failures as {"detail": "<human-readable reason>"}
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
