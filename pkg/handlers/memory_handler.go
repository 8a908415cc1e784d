package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/config"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

// AddTranslationRequest for POST /api/memory
type AddTranslationRequest struct {
	SourceText           string         `json:"source_text"`
	SourceLanguage       string         `json:"source_language"`
	TargetText           string         `json:"target_text"`
	TargetLanguage       string         `json:"target_language"`
	ContextHash          string         `json:"context_hash,omitempty"`
	FilePath             string         `json:"file_path,omitempty"`
	CulturalSignificance string         `json:"cultural_significance,omitempty"`
	QualityScore         float64        `json:"quality_score,omitempty"`
	CulturalContext      map[string]any `json:"cultural_context,omitempty"`
}

// FuzzyMatchRequest for POST /api/memory/match
type FuzzyMatchRequest struct {
	SourceText     string                 `json:"source_text"`
	SourceLanguage string                 `json:"source_language"`
	TargetLanguage string                 `json:"target_language"`
	Context        *models.ContentContext `json:"context,omitempty"`
	MinThreshold   float64                `json:"min_threshold,omitempty"`
}

// SegmentTextRequest for POST /api/memory/segment
type SegmentTextRequest struct {
	Text    string                 `json:"text"`
	Context *models.ContentContext `json:"context,omitempty"`
}

// FuzzyMatchResponse for POST /api/memory/match
type FuzzyMatchResponse struct {
	Matches []*models.EnhancedMatchResult `json:"matches"`
	Total   int                           `json:"total"`
}

// SegmentTextResponse for POST /api/memory/segment
type SegmentTextResponse struct {
	Segments []models.TextSegment `json:"segments"`
	Total    int                  `json:"total"`
}

// MemoryHandler handles translation memory HTTP requests.
type MemoryHandler struct {
	memoryRepo repositories.TranslationMemoryRepository
	matcher    services.FuzzyMatcher
	registry   services.CulturalEntityRegistry
	cfg        *config.TranslationConfig
	version    string
	logger     *zap.Logger
}

// NewMemoryHandler creates a new translation memory handler.
func NewMemoryHandler(
	memoryRepo repositories.TranslationMemoryRepository,
	matcher services.FuzzyMatcher,
	registry services.CulturalEntityRegistry,
	cfg *config.TranslationConfig,
	version string,
	logger *zap.Logger,
) *MemoryHandler {
	return &MemoryHandler{
		memoryRepo: memoryRepo,
		matcher:    matcher,
		registry:   registry,
		cfg:        cfg,
		version:    version,
		logger:     logger,
	}
}

// RegisterRoutes registers the memory handler's routes on the given mux.
func (h *MemoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/memory", h.AddTranslation)
	mux.HandleFunc("POST /api/memory/match", h.FindMatches)
	mux.HandleFunc("POST /api/memory/segment", h.SegmentText)
	mux.HandleFunc("GET /api/memory/stats", h.Stats)
}

// AddTranslation handles POST /api/memory
func (h *MemoryHandler) AddTranslation(w http.ResponseWriter, r *http.Request) {
	var req AddTranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceText == "" || req.TargetText == "" {
		h.writeError(w, http.StatusBadRequest, "source_text and target_text are required")
		return
	}
	if !h.cfg.IsSupportedLanguage(req.SourceLanguage) || !h.cfg.IsSupportedLanguage(req.TargetLanguage) {
		h.writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	entities := h.registry.DetectEntities(req.SourceText)

	significance := req.CulturalSignificance
	if significance == "" {
		significance = h.classifySignificance(entities)
	}

	entry := &models.TranslationMemoryEntry{
		SourceText:           req.SourceText,
		SourceLanguage:       req.SourceLanguage,
		TargetText:           req.TargetText,
		TargetLanguage:       req.TargetLanguage,
		ContextHash:          req.ContextHash,
		FilePath:             req.FilePath,
		CulturalSignificance: significance,
		QualityScore:         req.QualityScore,
		FuzzyThreshold:       h.cfg.MinFuzzyThreshold,
		EntityReferences:     entities,
		CulturalContext:      req.CulturalContext,
		KevinSignificance:    kevinSignificance(entities, req.SourceText),
		RarePepeConnection:   containsEntity(entities, models.EntityRarePepe),
	}

	if err := h.memoryRepo.AddTranslation(r.Context(), entry); err != nil {
		h.logger.Error("Failed to add translation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, req.TargetLanguage, entry); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// FindMatches handles POST /api/memory/match
func (h *MemoryHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	var req FuzzyMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceText == "" {
		h.writeError(w, http.StatusBadRequest, "source_text is required")
		return
	}
	if !h.cfg.IsSupportedLanguage(req.TargetLanguage) {
		h.writeError(w, http.StatusBadRequest, "unsupported target language")
		return
	}

	matches, err := h.matcher.FindBestMatches(r.Context(),
		req.SourceText, req.SourceLanguage, req.TargetLanguage, req.Context, req.MinThreshold)
	if err != nil {
		h.logger.Error("Fuzzy match failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := FuzzyMatchResponse{Matches: matches, Total: len(matches)}
	if err := WriteSuccess(w, h.version, req.TargetLanguage, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SegmentText handles POST /api/memory/segment
func (h *MemoryHandler) SegmentText(w http.ResponseWriter, r *http.Request) {
	var req SegmentTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	segments := h.matcher.SegmentText(req.Text, req.Context)
	response := SegmentTextResponse{Segments: segments, Total: len(segments)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/memory/stats
func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language != "" && !h.cfg.IsSupportedLanguage(language) {
		h.writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	stats, err := h.memoryRepo.GetStats(r.Context(), language)
	if err != nil {
		h.logger.Error("Failed to get translation stats", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := WriteSuccess(w, h.version, language, stats); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// classifySignificance derives an entry's cultural tier from its detected
// entities when the caller does not supply one.
func (h *MemoryHandler) classifySignificance(entities []string) string {
	for _, id := range entities {
		if h.registry.IsHighSignificance(id) {
			return models.SignificanceHigh
		}
	}
	if len(entities) > 0 {
		return models.SignificanceMedium
	}
	return models.SignificanceLow
}

func kevinSignificance(entities []string, sourceText string) string {
	if !containsEntity(entities, models.EntityKevin) {
		return models.KevinSignificanceNone
	}
	// A short text about KEVIN is central; a passing reference in longer
	// prose is a mention.
	if len(sourceText) < 120 {
		return models.KevinSignificanceCentral
	}
	return models.KevinSignificanceMention
}

func containsEntity(entities []string, id string) bool {
	for _, e := range entities {
		if e == id {
			return true
		}
	}
	return false
}

func (h *MemoryHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
