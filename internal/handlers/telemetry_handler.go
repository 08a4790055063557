// Package handlers exposes the telemetry ingestion HTTP API.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/airtrace-systems/airtrace-telemetry/internal/auth"
	"github.com/airtrace-systems/airtrace-telemetry/internal/buffer"
	"github.com/airtrace-systems/airtrace-telemetry/internal/decode"
	"github.com/airtrace-systems/airtrace-telemetry/internal/dedup"
	"github.com/airtrace-systems/airtrace-telemetry/internal/httputil"
	"github.com/airtrace-systems/airtrace-telemetry/internal/logging"
	"github.com/airtrace-systems/airtrace-telemetry/internal/metrics"
	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
	"github.com/airtrace-systems/airtrace-telemetry/internal/service"
)

// maxBodyBytes bounds request bodies well above the largest legal packet.
const maxBodyBytes = 1024

// CaptureIDHeader carries the caller-asserted receiver identifier.
const CaptureIDHeader = "X-Capture-ID"

type TelemetryHandler struct {
	service *service.IngestService
	issuer  *auth.TokenIssuer
	gate    *buffer.Gate
	cache   dedup.Cache
	logger  *logging.Logger
}

func NewTelemetryHandler(svc *service.IngestService, issuer *auth.TokenIssuer,
	gate *buffer.Gate, cache dedup.Cache, logger *logging.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		service: svc,
		issuer:  issuer,
		gate:    gate,
		cache:   cache,
		logger:  logger,
	}
}

func (h *TelemetryHandler) HandleADSB(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, models.ProtocolADSB)
}

func (h *TelemetryHandler) HandleMAVLinkADSB(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, models.ProtocolMAVLinkADSB)
}

func (h *TelemetryHandler) HandleRemoteID(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, models.ProtocolRemoteID)
}

func (h *TelemetryHandler) ingest(w http.ResponseWriter, r *http.Request, protocol models.Protocol) {
	label := string(protocol)

	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.gate.TryAcquire() {
		metrics.PacketsTotal.WithLabelValues(label, "shed").Inc()
		httputil.WriteError(w, http.StatusServiceUnavailable, "ingestion at capacity")
		return
	}
	defer func() {
		h.gate.Release()
		metrics.InFlight.Set(float64(h.gate.InFlight()))
	}()
	metrics.InFlight.Set(float64(h.gate.InFlight()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.PacketsTotal.WithLabelValues(label, "rejected").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "unreadable payload")
		return
	}
	defer r.Body.Close()

	if len(body) == 0 {
		metrics.PacketsTotal.WithLabelValues(label, "rejected").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "empty payload")
		return
	}
	metrics.PacketBytesTotal.WithLabelValues(label).Add(float64(len(body)))

	captureID := r.Header.Get(CaptureIDHeader)
	identity := auth.Identity(r.Context())

	count, err := h.service.Ingest(r.Context(), protocol, body, captureID, identity)
	if err != nil {
		switch {
		case decode.IsDecodeError(err):
			metrics.PacketsTotal.WithLabelValues(label, "rejected").Inc()
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotConfigured):
			metrics.PacketsTotal.WithLabelValues(label, "error").Inc()
			h.logger.ErrorContext(r.Context(), "ingest failed", "protocol", protocol, "error", err)
			httputil.WriteError(w, http.StatusServiceUnavailable, "fanout target not configured")
		default:
			metrics.PacketsTotal.WithLabelValues(label, "error").Inc()
			h.logger.ErrorContext(r.Context(), "ingest failed", "protocol", protocol, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	if count > 1 {
		metrics.PacketsTotal.WithLabelValues(label, "duplicate").Inc()
	} else {
		metrics.PacketsTotal.WithLabelValues(label, "accepted").Inc()
	}
	httputil.WriteJSON(w, http.StatusOK, models.CountResponse{Count: count})
}

// HandleLogin issues a bearer token for a sender identifier posted as the
// request body.
func (h *TelemetryHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "unreadable identifier")
		return
	}
	defer r.Body.Close()

	token, err := h.issuer.Issue(string(body))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (h *TelemetryHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports whether the service can accept traffic: the dedup cache
// must answer, since without it every packet would be refused anyway.
func (h *TelemetryHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Ping(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "dedup cache unreachable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"in_flight": strconv.Itoa(h.gate.InFlight()),
	})
}
