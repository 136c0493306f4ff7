// Package handlers exposes the connection lifecycle over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/audit"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/logging"
	"github.com/skiff-data/skiff-engine/pkg/metadata"
	"github.com/skiff-data/skiff-engine/pkg/models"
	"github.com/skiff-data/skiff-engine/pkg/services"
)

// ConnectionsHandler handles source lifecycle endpoints.
type ConnectionsHandler struct {
	service   services.ConnectionService
	refresher *metadata.Refresher
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewConnectionsHandler creates a ConnectionsHandler.
func NewConnectionsHandler(service services.ConnectionService, refresher *metadata.Refresher, auditor *audit.SecurityAuditor, logger *zap.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{service: service, refresher: refresher, auditor: auditor, logger: logger}
}

// RegisterRoutes registers the connection routes on the given mux.
func (h *ConnectionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/kinds", h.ListKinds)
	mux.HandleFunc("GET /api/sources", h.List)
	mux.HandleFunc("POST /api/sources", h.Add)
	mux.HandleFunc("POST /api/sources/test", h.Test)
	mux.HandleFunc("GET /api/sources/{id}", h.Get)
	mux.HandleFunc("DELETE /api/sources/{id}", h.Remove)
	mux.HandleFunc("POST /api/sources/{id}/reconnect", h.Reconnect)
	mux.HandleFunc("POST /api/sources/{id}/disconnect", h.Disconnect)
	mux.HandleFunc("GET /api/sources/{id}/metadata", h.Metadata)
}

// addRequest is the body for POST /api/sources and /api/sources/test.
type addRequest struct {
	Kind        models.SourceKind `json:"kind"`
	DisplayName string            `json:"display_name"`
	Config      map[string]any    `json:"config"`
}

// reconnectRequest optionally carries replacement credentials.
type reconnectRequest struct {
	Secret map[string]string `json:"secret,omitempty"`
}

// ListKinds returns discovery info for every compiled-in source kind.
func (h *ConnectionsHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"kinds": drivers.Registered()})
}

// List returns every source.
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// Add creates and attaches a new source. The record is returned even
// when attachment fails; the response status reflects the outcome.
func (h *ConnectionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	ds, err := h.service.Add(r.Context(), req.Kind, req.DisplayName, req.Config)
	if err != nil {
		h.auditFailure(req.Kind, ds, err, r)
		if ds != nil {
			// The record exists but attachment failed; surface both.
			h.writeJSON(w, http.StatusAccepted, map[string]any{
				"source": ds,
				"error":  errorBody(err),
			})
			return
		}
		writeServiceError(w, err)
		return
	}
	h.auditor.LogSourceLifecycle(ds.ID, string(ds.Kind), "attached", r.RemoteAddr)
	h.writeJSON(w, http.StatusCreated, map[string]any{"source": ds})
}

// Test probes a configuration without persisting anything.
func (h *ConnectionsHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	if err := h.service.TestConnection(r.Context(), req.Kind, req.Config); err != nil {
		h.auditFailure(req.Kind, nil, err, r)
		writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Get returns one source.
func (h *ConnectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}
	ds, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"source": ds})
}

// Reconnect re-runs the attach pipeline, optionally with new credentials.
func (h *ConnectionsHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}

	var req reconnectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
			return
		}
	}

	ds, err := h.service.Reconnect(r.Context(), id, req.Secret)
	if err != nil {
		if ds != nil {
			h.auditFailure(ds.Kind, ds, err, r)
			h.writeJSON(w, http.StatusAccepted, map[string]any{
				"source": ds,
				"error":  errorBody(err),
			})
			return
		}
		writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"source": ds})
}

// Disconnect detaches a connected source, keeping its record.
func (h *ConnectionsHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}
	ds, err := h.service.Disconnect(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.auditor.LogSourceLifecycle(ds.ID, string(ds.Kind), "disconnected", r.RemoteAddr)
	h.writeJSON(w, http.StatusOK, map[string]any{"source": ds})
}

// Remove deletes a source and its non-shared secret.
func (h *ConnectionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.auditor.LogSourceLifecycle(id, "", "removed", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// Metadata returns the cached catalog summary for one source.
func (h *ConnectionsHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sourceID(w, r)
	if !ok {
		return
	}
	ds, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	alias := ds.DisplayName
	if ds.Config != nil {
		alias = ds.Config.Alias()
	}
	summary, found := h.refresher.Get(alias)
	if !found {
		_ = ErrorResponse(w, http.StatusNotFound, "no_metadata", "no cached metadata for this source")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *ConnectionsHandler) sourceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "source id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ConnectionsHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"message": logging.SanitizeError(err)}
}

// auditFailure routes security-relevant failures to the auditor:
// injection screening rejections and credentials-shaped attach
// failures. Ordinary errors are not audit events.
func (h *ConnectionsHandler) auditFailure(kind models.SourceKind, ds *models.DataSource, err error, r *http.Request) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) && strings.Contains(ve.Reason, "injection pattern") {
		h.auditor.LogInjectionAttempt(string(kind), audit.InjectionDetails{
			Field:  ve.Field,
			Reason: ve.Reason,
		}, r.RemoteAddr)
		return
	}
	if apperrors.IsCredentialsRequired(err) && ds != nil {
		h.auditor.LogCredentialsFailure(ds.ID, string(kind), r.RemoteAddr)
	}
}
