package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

// ValidateTranslationRequest for POST /api/validate
type ValidateTranslationRequest struct {
	SourceText     string `json:"source_text"`
	TargetText     string `json:"target_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	FilePath       string `json:"file_path,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
}

// ValidateTranslationResponse for POST /api/validate
type ValidateTranslationResponse struct {
	Result     *models.CulturalValidationResult `json:"result"`
	RuleChecks []RuleCheckResult                `json:"rule_checks,omitempty"`
}

// ValidationQueueResponse for GET /api/validation/queue
type ValidationQueueResponse struct {
	Items []*models.CulturalValidationItem `json:"items"`
	Total int                              `json:"total"`
}

// ValidationHandler handles cultural validation HTTP requests.
type ValidationHandler struct {
	validator services.CulturalValidator
	workflows services.WorkflowService
	ruleRepo  repositories.ValidationRuleRepository
	funcReg   *ValidationFuncRegistry
	manager   services.TranslationManager
	version   string
	logger    *zap.Logger
}

// NewValidationHandler creates a new validation handler.
func NewValidationHandler(
	validator services.CulturalValidator,
	workflows services.WorkflowService,
	ruleRepo repositories.ValidationRuleRepository,
	funcReg *ValidationFuncRegistry,
	manager services.TranslationManager,
	version string,
	logger *zap.Logger,
) *ValidationHandler {
	return &ValidationHandler{
		validator: validator,
		workflows: workflows,
		ruleRepo:  ruleRepo,
		funcReg:   funcReg,
		manager:   manager,
		version:   version,
		logger:    logger,
	}
}

// RegisterRoutes registers the validation handler's routes on the given mux.
func (h *ValidationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/validate", h.Validate)
	mux.HandleFunc("GET /api/validation/queue", h.Queue)
	mux.HandleFunc("GET /api/validation/report", h.Report)
}

// Validate handles POST /api/validate
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateTranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.validator.ValidateTranslation(&services.ValidationContext{
		SourceText:     req.SourceText,
		TargetText:     req.TargetText,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		FilePath:       req.FilePath,
		ContentType:    req.ContentType,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, err := h.ruleRepo.GetActive(r.Context(), req.TargetLanguage)
	if err != nil {
		h.logger.Error("Failed to load validation rules", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	checks, err := h.funcReg.Apply(rules, req.SourceText, req.TargetText, req.TargetLanguage)
	if err != nil {
		h.logger.Error("Rule check dispatch failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := ValidateTranslationResponse{Result: result, RuleChecks: checks}
	if err := WriteSuccess(w, h.version, req.TargetLanguage, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Queue handles GET /api/validation/queue
func (h *ValidationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.workflows.GetCulturalValidationQueue(r.Context())
	if err != nil {
		h.logger.Error("Failed to get validation queue", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := ValidationQueueResponse{Items: items, Total: len(items)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Report handles GET /api/validation/report
func (h *ValidationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.manager.PostBuildHook(r.Context())
	if err != nil {
		h.logger.Error("Failed to generate preservation report", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, "", report); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ValidationHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
