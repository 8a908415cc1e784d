package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

// PreBuildResponse for POST /hooks/pre-build
type PreBuildResponse struct {
	WorkflowsProcessed int `json:"workflows_processed"`
}

// SystemHandler exposes subsystem status and the build-lifecycle hooks the
// site build calls around each run.
type SystemHandler struct {
	manager services.TranslationManager
	version string
	logger  *zap.Logger
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(manager services.TranslationManager, version string, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		manager: manager,
		version: version,
		logger:  logger,
	}
}

// RegisterRoutes registers the system handler's routes on the given mux.
func (h *SystemHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("POST /hooks/pre-build", h.PreBuild)
	mux.HandleFunc("POST /hooks/post-build", h.PostBuild)
}

// Health handles GET /healthz
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := WriteSuccess(w, h.version, "", map[string]string{"status": "ok"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Status handles GET /api/status
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.Status(r.Context())
	if err != nil {
		h.logger.Error("Failed to get subsystem status", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, "", status); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PreBuild handles POST /hooks/pre-build
func (h *SystemHandler) PreBuild(w http.ResponseWriter, r *http.Request) {
	processed, err := h.manager.PreBuildHook(r.Context())
	if err != nil {
		h.logger.Error("Pre-build hook failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, "", PreBuildResponse{WorkflowsProcessed: processed}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PostBuild handles POST /hooks/post-build
func (h *SystemHandler) PostBuild(w http.ResponseWriter, r *http.Request) {
	report, err := h.manager.PostBuildHook(r.Context())
	if err != nil {
		h.logger.Error("Post-build hook failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, "", report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SystemHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
