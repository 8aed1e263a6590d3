// Package ws streams engine snapshots to WebSocket clients: one JSON
// message per tick, plus an immediate snapshot on connect.
package ws
