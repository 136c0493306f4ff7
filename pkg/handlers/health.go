package handlers

import (
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/config"
	"github.com/skiff-data/skiff-engine/pkg/engine"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string       `json:"status"`
	Version     string       `json:"version"`
	Service     string       `json:"service"`
	GoVersion   string       `json:"go_version"`
	Environment string       `json:"environment"`
	Engine      engine.Stats `json:"engine"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	pool   *engine.Pool
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, pool *engine.Pool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, pool: pool, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health returns a bare "ok" for load balancer checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping returns service details including engine pool usage.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "skiff-engine",
		GoVersion:   runtime.Version(),
		Environment: h.cfg.Env,
		Engine:      h.pool.GetStats(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
