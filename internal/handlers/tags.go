package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-bookmarks/internal/middleware"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TagService is the subset of the tag service used over HTTP
type TagService interface {
	Create(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]*models.TagWithCount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.TagDetail, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.Tag, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.MessageResponse, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
}

// TagHandler handles tag requests
type TagHandler struct {
	service TagService
	logger  *zap.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(service TagService, logger *zap.Logger) *TagHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagHandler{service: service, logger: logger}
}

// RegisterRoutes registers tag routes on the given router.
// The router should already have the /tags prefix.
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateTag).Methods("POST")
	r.HandleFunc("", h.ListTags).Methods("GET")
	// Fixed paths come before /{id}.
	r.HandleFunc("/stats", h.GetTagStatistics).Methods("GET")
	r.HandleFunc("/name/{name}", h.GetTagByName).Methods("GET")
	r.HandleFunc("/{id}", h.GetTag).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTag).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTag).Methods("DELETE")
}

// TagRequest is the body for creating or renaming a tag
type TagRequest struct {
	Name string `json:"name" validate:"required,tag_name"`
}

// CreateTag creates a tag
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// ListTags lists every tag with its bookmark count
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetTagStatistics returns the caller's aggregated tag statistics
func (h *TagHandler) GetTagStatistics(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	stats, err := h.service.Stats(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetTagByName looks a tag up by its normalized name
func (h *TagHandler) GetTagByName(w http.ResponseWriter, r *http.Request) {
	tag, err := h.service.GetByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// GetTag returns a tag with its bookmarks
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	tag, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// UpdateTag renames a tag
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.service.Update(r.Context(), id, req.Name)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// DeleteTag removes a tag
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Delete(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
