package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

// UpdateWorkflowStatusRequest for PUT /api/workflows/{id}/status
type UpdateWorkflowStatusRequest struct {
	Status string `json:"status"`
}

// UpdateWorkflowProgressRequest for PUT /api/workflows/{id}/progress
type UpdateWorkflowProgressRequest struct {
	TotalSegments      int `json:"total_segments"`
	TranslatedSegments int `json:"translated_segments"`
	ValidatedSegments  int `json:"validated_segments"`
}

// CulturalReviewRequest for PUT /api/workflows/{id}/cultural-review
type CulturalReviewRequest struct {
	Reviewer string `json:"reviewer"`
	Status   string `json:"status"`
	Notes    string `json:"notes,omitempty"`
}

// WorkflowListResponse for GET /api/workflows
type WorkflowListResponse struct {
	Workflows []*models.TranslationWorkflow `json:"workflows"`
	Total     int                           `json:"total"`
}

// WorkflowHandler handles translation workflow HTTP requests.
type WorkflowHandler struct {
	workflows services.WorkflowService
	version   string
	logger    *zap.Logger
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(workflows services.WorkflowService, version string, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflows: workflows,
		version:   version,
		logger:    logger,
	}
}

// RegisterRoutes registers the workflow handler's routes on the given mux.
func (h *WorkflowHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workflows", h.List)
	mux.HandleFunc("GET /api/workflows/active", h.Active)
	mux.HandleFunc("GET /api/workflows/{id}", h.Get)
	mux.HandleFunc("PUT /api/workflows/{id}/status", h.UpdateStatus)
	mux.HandleFunc("PUT /api/workflows/{id}/progress", h.UpdateProgress)
	mux.HandleFunc("PUT /api/workflows/{id}/cultural-review", h.CulturalReview)
}

// List handles GET /api/workflows
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.WorkflowStatus(q.Get("status"))
	language := q.Get("language")
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	workflows, err := h.workflows.ListWorkflows(r.Context(), status, language, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list workflows")
		return
	}

	response := WorkflowListResponse{Workflows: workflows, Total: len(workflows)}
	if err := WriteSuccess(w, h.version, language, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Active handles GET /api/workflows/active
func (h *WorkflowHandler) Active(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.GetActiveWorkflows(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to get active workflows")
		return
	}

	response := WorkflowListResponse{Workflows: workflows, Total: len(workflows)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/workflows/{id}
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.parseWorkflowID(w, r)
	if !ok {
		return
	}

	workflow, err := h.workflows.GetWorkflow(r.Context(), workflowID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get workflow")
		return
	}

	if err := WriteSuccess(w, h.version, workflow.TargetLanguage, workflow); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PUT /api/workflows/{id}/status
func (h *WorkflowHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.parseWorkflowID(w, r)
	if !ok {
		return
	}

	var req UpdateWorkflowStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workflow, err := h.workflows.UpdateStatus(r.Context(), workflowID, models.WorkflowStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, err, "Failed to update workflow status")
		return
	}

	if err := WriteSuccess(w, h.version, workflow.TargetLanguage, workflow); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateProgress handles PUT /api/workflows/{id}/progress
func (h *WorkflowHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.parseWorkflowID(w, r)
	if !ok {
		return
	}

	var req UpdateWorkflowProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workflow, err := h.workflows.UpdateProgress(r.Context(), workflowID,
		req.TotalSegments, req.TranslatedSegments, req.ValidatedSegments)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update workflow progress")
		return
	}

	if err := WriteSuccess(w, h.version, workflow.TargetLanguage, workflow); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CulturalReview handles PUT /api/workflows/{id}/cultural-review
func (h *WorkflowHandler) CulturalReview(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.parseWorkflowID(w, r)
	if !ok {
		return
	}

	var req CulturalReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workflow, err := h.workflows.UpdateCulturalReview(r.Context(), workflowID, req.Reviewer, req.Status, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update cultural review")
		return
	}

	if err := WriteSuccess(w, h.version, workflow.TargetLanguage, workflow); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *WorkflowHandler) parseWorkflowID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid workflow id")
		return uuid.Nil, false
	}
	return workflowID, true
}

func (h *WorkflowHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *WorkflowHandler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, apperrors.ErrInvalidTransition):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(logMessage, zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
