package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// EntityListResponse for GET /api/entities
type EntityListResponse struct {
	Entities []*models.CulturalEntity `json:"entities"`
	Total    int                      `json:"total"`
}

// EntityHandler handles cultural entity HTTP requests. Lookups include the
// translation guidelines the docs layer injects into generated pages.
type EntityHandler struct {
	entityRepo repositories.CulturalEntityRepository
	version    string
	logger     *zap.Logger
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(entityRepo repositories.CulturalEntityRepository, version string, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		entityRepo: entityRepo,
		version:    version,
		logger:     logger,
	}
}

// RegisterRoutes registers the entity handler's routes on the given mux.
func (h *EntityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/entities", h.List)
	mux.HandleFunc("GET /api/entities/{id}", h.Get)
}

// List handles GET /api/entities
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	entities, err := h.entityRepo.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cultural entities", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := EntityListResponse{Entities: entities, Total: len(entities)}
	if err := WriteSuccess(w, h.version, "", response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/entities/{id}
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	entity, err := h.entityRepo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("Failed to get cultural entity", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entity == nil {
		h.writeError(w, http.StatusNotFound, "cultural entity not found")
		return
	}

	if err := WriteSuccess(w, h.version, "", entity); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *EntityHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := WriteError(w, status, h.version, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
