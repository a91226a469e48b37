package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-bookmarks/internal/middleware"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/services/users"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UserService is the subset of the user service used over HTTP
type UserService interface {
	Create(ctx context.Context, in users.CreateInput) (*models.User, error)
	List(ctx context.Context) ([]*models.UserWithCount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.UserDetail, error)
	Update(ctx context.Context, id uuid.UUID, in users.UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.MessageResponse, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, action models.StatusAction) (*models.User, error)
}

// UserHandler handles user administration requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: service, logger: logger}
}

// RegisterRoutes registers user routes on the given router.
// The router should already have the /users prefix.
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateUser).Methods("POST")
	r.HandleFunc("", h.ListUsers).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/{id}", h.GetUser).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateUser).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteUser).Methods("DELETE")
	r.HandleFunc("/{id}/{action:activate|deactivate|block|unblock}", h.ChangeStatus).Methods("PUT")
}

// CreateUserRequest represents a create user request
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// UpdateUserRequest represents an update user request
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// CreateUser creates an ACTIVE user
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Create(r.Context(), users.CreateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     sanitizedText(req.Name),
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// ListUsers lists every user with a bookmark count
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetMe returns the authenticated user with their bookmarks
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}
	h.respondDetail(w, r, user.ID)
}

// GetUser returns a user with their bookmarks
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	h.respondDetail(w, r, id)
}

func (h *UserHandler) respondDetail(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// UpdateUser changes email, name or password
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), id, users.UpdateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     sanitizedText(req.Name),
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user and their bookmarks
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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

// ChangeStatus applies the status action named in the path
func (h *UserHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	action := models.StatusAction(mux.Vars(r)["action"])

	user, err := h.service.ChangeStatus(r.Context(), id, action)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
