// Package app assembles the objectstream-server HTTP handler from its parts:
// object API, stream hub, authorization gate, CORS policy, health, metrics
// and tracing.
package app
