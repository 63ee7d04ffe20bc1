// Package ws implements the random-value stream endpoint for
// objectstream-server.
//
// A client connects with
//
//	GET /ws?mean=<float>&std=<float>&interval=<ms>
//
// and, once upgraded, receives one text frame every interval milliseconds:
//
//	{"value": <float>}
//
// Each value is an independent draw from N(mean, std²). The stream never ends
// on its own: it stops when the peer disconnects, a write fails, or the hub
// shuts down. A peer disconnect is a normal end, not an error.
//
// Query parameters are validated before the upgrade; invalid ones yield a
// 400 with a JSON {"detail": ...} body.
//
// New(cfg, metrics, opts...) creates a Hub. Hub.ServeHTTP serves one session
// per connection. Hub.Run(ctx) blocks until ctx is cancelled, then closes all
// active sessions. Hub.Count reports how many are open.
//
// The upgrader accepts all origins unless WithOriginCheck is given.
package ws
