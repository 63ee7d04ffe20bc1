// Package metrics defines the Prometheus collectors exported by
// objectstream-server and the /metrics handler that serves them.
//
// New(reg) registers every collector on reg. A nil *Metrics is valid and
// records nothing, so packages can be exercised without a registry.
package metrics
