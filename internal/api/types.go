package api

import "github.com/chronywatch/chronywatch/internal/trust"

type sourcesResponse struct {
	Sources []trust.Scored `json:"sources"`
	Noise   trust.Noise    `json:"noise"`
}

type alertsResponse struct {
	Alerts []string `json:"alerts"`
	Tick   uint64   `json:"tick"`
}

type healthzResponse struct {
	Status string `json:"status"`
	Tick   uint64 `json:"tick,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
