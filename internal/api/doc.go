// Package api exposes the engine's latest snapshot over a read-only JSON
// HTTP interface, alongside the liveness probe and Prometheus metrics.
package api
