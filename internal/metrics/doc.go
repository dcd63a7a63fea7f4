// Package metrics exposes bridge health as Prometheus metrics.
//
// A Metrics value owns its own registry so tests and multiple bridges in
// one process never collide on the default registerer. Its Observe*
// methods match the callback hooks of the session, directory, poller and
// command packages.
package metrics
