package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronywatch/chronywatch/internal/engine"
)

// Source provides the latest published snapshot. Satisfied by
// *engine.Engine.
type Source interface {
	Latest() *engine.Snapshot
}

// Handler serves the read-only JSON API over the engine's snapshots.
type Handler struct {
	source Source
}

// NewRouter builds the service router: the JSON API, the health probe and
// the Prometheus exposition endpoint. The websocket endpoint is attached by
// the caller so this package stays free of connection state.
func NewRouter(source Source, gatherer prometheus.Gatherer) *mux.Router {
	h := &Handler{source: source}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/sources", h.sources).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts", h.alerts).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// status returns GET /api/status: the full latest snapshot.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Latest()
	if snap == nil {
		jsonErr(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	jsonResp(w, http.StatusOK, snap)
}

// sources returns GET /api/sources: the ranked source list.
func (h *Handler) sources(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Latest()
	if snap == nil {
		jsonErr(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	jsonResp(w, http.StatusOK, sourcesResponse{
		Sources: snap.Sources,
		Noise:   snap.Noise,
	})
}

// alerts returns GET /api/alerts: the active alert strings.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Latest()
	if snap == nil {
		jsonErr(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	alerts := snap.Alerts
	if alerts == nil {
		alerts = []string{}
	}
	jsonResp(w, http.StatusOK, alertsResponse{
		Alerts: alerts,
		Tick:   snap.Tick,
	})
}

// healthz returns GET /healthz: liveness of the process itself, not of the
// monitored daemon. It is healthy as soon as the first tick completes.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Latest()
	if snap == nil {
		jsonResp(w, http.StatusOK, healthzResponse{Status: "starting"})
		return
	}
	jsonResp(w, http.StatusOK, healthzResponse{Status: "ok", Tick: snap.Tick})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
