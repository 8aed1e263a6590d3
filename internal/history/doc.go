// Package history keeps rolling per-metric sample windows and maps them to
// discrete sparkline levels under a fixed or automatically derived scale.
//
// Scaling never touches stored samples; it only changes how values map to
// levels, so toggling autoscale back and forth round-trips exactly.
package history
