package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// ChangeListResponse for GET /api/changes/pending
type ChangeListResponse struct {
	Changes []*models.ContentChange `json:"changes"`
	Total   int                     `json:"total"`
}

// ChangeHandler handles content change HTTP requests.
type ChangeHandler struct {
	changeRepo   repositories.ContentChangeRepository
	workflowRepo repositories.WorkflowRepository
	version      string
	logger       *zap.Logger
}

// NewChangeHandler creates a new change handler.
func NewChangeHandler(
	changeRepo repositories.ContentChangeRepository,
	workflowRepo repositories.WorkflowRepository,
	version string,
	logger *zap.Logger,
) *ChangeHandler {
	return &ChangeHandler{
		changeRepo:   changeRepo,
		workflowRepo: workflowRepo,
		version:      version,
		logger:       logger,
	}
}

// RegisterRoutes registers the change handler's routes on the given mux.
func (h *ChangeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/changes/pending", h.Pending)
	mux.HandleFunc("GET /api/changes/{id}", h.Get)
	mux.HandleFunc("GET /api/changes/{id}/workflows", h.Workflows)
}

// Pending handles GET /api/changes/pending
func (h *ChangeHandler) Pending(w http.ResponseWriter, r *http.Request) {
	changes, err := h.changeRepo.GetPending(r.Context())
	if err != nil {
		h.logger.Error("Failed to get pending changes", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := ChangeListResponse{Changes: changes, Total: len(changes)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/changes/{id}
func (h *ChangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	changeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid change id")
		return
	}

	change, err := h.changeRepo.GetByID(r.Context(), changeID)
	if err != nil {
		h.logger.Error("Failed to get change", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if change == nil {
		h.writeError(w, http.StatusNotFound, "change not found")
		return
	}

	if err := WriteSuccess(w, h.version, "", change); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Workflows handles GET /api/changes/{id}/workflows
func (h *ChangeHandler) Workflows(w http.ResponseWriter, r *http.Request) {
	changeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid change id")
		return
	}

	workflows, err := h.workflowRepo.GetByChange(r.Context(), changeID)
	if err != nil {
		h.logger.Error("Failed to get change workflows", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := WorkflowListResponse{Workflows: workflows, Total: len(workflows)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ChangeHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
