package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airtrace-systems/airtrace-telemetry/internal/auth"
	"github.com/airtrace-systems/airtrace-telemetry/internal/handlers"
	"github.com/airtrace-systems/airtrace-telemetry/internal/middleware"
)

// NewRouter constructs a ServeMux with the telemetry API routes registered.
// The Remote ID endpoint is the only protected route: network-relayed
// packets carry a sender identity that must be proven.
func NewRouter(h *handlers.TelemetryHandler, issuer *auth.TokenIssuer) http.Handler {
	mux := http.NewServeMux()

	// Ingestion endpoints
	mux.HandleFunc("/telemetry/adsb", h.HandleADSB)
	mux.HandleFunc("/telemetry/mavlink/adsb", h.HandleMAVLinkADSB)
	mux.HandleFunc("/telemetry/netrid", issuer.RequireAuth(h.HandleRemoteID))
	mux.HandleFunc("/telemetry/login", h.HandleLogin)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
