package storefront

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/http/middleware"
	"github.com/novamall/mall-backend/internal/httputil"
	"github.com/novamall/mall-backend/internal/repository"
)

// Handler handles storefront management. Admins manage any storefront;
// store owners only their own.
type Handler struct {
	logger      *slog.Logger
	storefronts *repository.StorefrontsRepository
}

// NewHandler creates a new storefront handler.
func NewHandler(logger *slog.Logger, storefronts *repository.StorefrontsRepository) *Handler {
	return &Handler{logger: logger, storefronts: storefronts}
}

type UpsertRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
	// OwnerID is honored only for admins; store owners always create for
	// themselves.
	OwnerID *uuid.UUID `json:"owner_id"`
}

type StorefrontResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
}

func toResponse(sf *domain.Storefront) StorefrontResponse {
	return StorefrontResponse{
		ID:          sf.ID,
		OwnerID:     sf.OwnerID,
		Name:        sf.Name,
		Slug:        sf.Slug,
		Description: sf.Description,
		IsActive:    sf.IsActive,
	}
}

// List lists storefronts. Public callers see active ones; the admin route
// passes all=1 after role checks.
// GET /v1/storefronts and GET /v1/admin/storefronts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "1"
	storefronts, err := h.storefronts.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("failed to list storefronts", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list storefronts")
		return
	}

	resp := make([]StorefrontResponse, 0, len(storefronts))
	for _, sf := range storefronts {
		resp = append(resp, toResponse(sf))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"storefronts": resp})
}

// Get serves one storefront by slug.
// GET /v1/storefronts/{slug}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sf, err := h.storefronts.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, domain.ErrStorefrontNotFound) {
			httputil.Error(w, http.StatusNotFound, "storefront not found")
			return
		}
		h.logger.Error("failed to get storefront", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to get storefront")
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(sf))
}

// Create creates a storefront.
// POST /v1/admin/storefronts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httputil.ValidationError(w, "validation failed", map[string]string{"name": "name is required"})
		return
	}

	ownerID := userID
	if req.OwnerID != nil && claims.Role == domain.RoleAdmin {
		ownerID = *req.OwnerID
	}

	slug := domain.Slugify(req.Name)
	taken, err := h.storefronts.ExistsBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("failed to check slug", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create storefront")
		return
	}
	if taken {
		httputil.ValidationError(w, "validation failed", map[string]string{"name": "a storefront with this name already exists"})
		return
	}

	now := time.Now()
	sf := &domain.Storefront{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storefronts.Create(r.Context(), sf); err != nil {
		h.logger.Error("failed to create storefront", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create storefront")
		return
	}

	h.logger.Info("storefront created", "storefront_id", sf.ID, "owner_id", ownerID)
	httputil.JSON(w, http.StatusCreated, toResponse(sf))
}

// loadForWrite loads a storefront and checks write permission.
func (h *Handler) loadForWrite(w http.ResponseWriter, r *http.Request) (*domain.Storefront, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	userID, _ := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "storefrontID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid storefront id")
		return nil, false
	}

	sf, err := h.storefronts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrStorefrontNotFound) {
			httputil.Error(w, http.StatusNotFound, "storefront not found")
			return nil, false
		}
		h.logger.Error("failed to get storefront", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to get storefront")
		return nil, false
	}

	if claims.Role != domain.RoleAdmin && sf.OwnerID != userID {
		httputil.Error(w, http.StatusForbidden, "not your storefront")
		return nil, false
	}
	return sf, true
}

// Update modifies a storefront.
// PUT /v1/admin/storefronts/{storefrontID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httputil.ValidationError(w, "validation failed", map[string]string{"name": "name is required"})
		return
	}

	if req.Name != sf.Name {
		slug := domain.Slugify(req.Name)
		taken, err := h.storefronts.ExistsBySlug(r.Context(), slug)
		if err != nil {
			h.logger.Error("failed to check slug", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to update storefront")
			return
		}
		if taken {
			httputil.ValidationError(w, "validation failed", map[string]string{"name": "a storefront with this name already exists"})
			return
		}
		sf.Name = req.Name
		sf.Slug = slug
	}
	sf.Description = req.Description
	sf.IsActive = req.IsActive

	if err := h.storefronts.Update(r.Context(), sf); err != nil {
		h.logger.Error("failed to update storefront", "error", err, "storefront_id", sf.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update storefront")
		return
	}

	h.logger.Info("storefront updated", "storefront_id", sf.ID)
	httputil.JSON(w, http.StatusOK, toResponse(sf))
}

// Delete removes a storefront and, via cascade, its products.
// DELETE /v1/admin/storefronts/{storefrontID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	if err := h.storefronts.Delete(r.Context(), sf.ID); err != nil {
		h.logger.Error("failed to delete storefront", "error", err, "storefront_id", sf.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete storefront")
		return
	}

	h.logger.Info("storefront deleted", "storefront_id", sf.ID)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}
