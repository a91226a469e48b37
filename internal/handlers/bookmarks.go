package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-bookmarks/internal/middleware"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/services/bookmarks"
	"github.com/benvon/smart-bookmarks/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BookmarkService is the subset of the bookmark service used over HTTP
type BookmarkService interface {
	Create(ctx context.Context, userID uuid.UUID, in bookmarks.CreateInput) (*models.Bookmark, error)
	List(ctx context.Context, userID uuid.UUID, all bool) ([]*models.Bookmark, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Bookmark, error)
	Update(ctx context.Context, id, userID uuid.UUID, patch models.BookmarkPatch) (*models.Bookmark, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (*models.MessageResponse, error)
}

// BookmarkHandler handles bookmark requests
type BookmarkHandler struct {
	service BookmarkService
	logger  *zap.Logger
}

// NewBookmarkHandler creates a new bookmark handler
func NewBookmarkHandler(service BookmarkService, logger *zap.Logger) *BookmarkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkHandler{service: service, logger: logger}
}

// RegisterRoutes registers bookmark routes on the given router.
// The router should already have the /bookmarks prefix.
func (h *BookmarkHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateBookmark).Methods("POST")
	r.HandleFunc("", h.ListBookmarks).Methods("GET")
	r.HandleFunc("/{id}", h.GetBookmark).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateBookmark).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteBookmark).Methods("DELETE")
}

// CreateBookmarkRequest represents a create bookmark request
type CreateBookmarkRequest struct {
	URL         string   `json:"url" validate:"required,http_url,max=2048"`
	Title       string   `json:"title" validate:"required,max=500"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=100"`
}

// UpdateBookmarkRequest represents an update bookmark request.
// A present tags array, even an empty one, regenerates the bookmark's tags.
type UpdateBookmarkRequest struct {
	URL         *string  `json:"url,omitempty" validate:"omitempty,http_url,max=2048"`
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=500"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	Tags        []string `json:"tags" validate:"omitempty,max=50,dive,max=100"`
}

// CreateBookmark saves a bookmark and tags it
func (h *BookmarkHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateBookmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bookmark, err := h.service.Create(r.Context(), user.ID, bookmarks.CreateInput{
		URL:         req.URL,
		Title:       validation.SanitizeText(req.Title),
		Description: sanitizedText(req.Description),
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, bookmark)
}

// ListBookmarks lists the caller's bookmarks, or every bookmark with ?all=true
func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	all := r.URL.Query().Get("all") == "true"
	list, err := h.service.List(r.Context(), user.ID, all)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if list == nil {
		list = []*models.Bookmark{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GetBookmark returns one of the caller's bookmarks
func (h *BookmarkHandler) GetBookmark(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	bookmark, err := h.service.Get(r.Context(), id, user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, bookmark)
}

// UpdateBookmark applies a partial update
func (h *BookmarkHandler) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	var req UpdateBookmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := models.BookmarkPatch{
		URL:         req.URL,
		Title:       sanitizedText(req.Title),
		Description: sanitizedText(req.Description),
		Tags:        req.Tags,
	}
	bookmark, err := h.service.Update(r.Context(), id, user.ID, patch)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, bookmark)
}

// DeleteBookmark removes one of the caller's bookmarks
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Delete(r.Context(), id, user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
