package products

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/http/middleware"
	"github.com/novamall/mall-backend/internal/httputil"
	"github.com/novamall/mall-backend/internal/repository"
)

// Handler serves the public catalog and the back-office product CRUD.
type Handler struct {
	logger      *slog.Logger
	products    *repository.ProductsRepository
	storefronts *repository.StorefrontsRepository
	db          *sql.DB
}

// NewHandler creates a new products handler.
func NewHandler(logger *slog.Logger, products *repository.ProductsRepository, storefronts *repository.StorefrontsRepository, db *sql.DB) *Handler {
	return &Handler{
		logger:      logger,
		products:    products,
		storefronts: storefronts,
		db:          db,
	}
}

// ProductResponse is the public JSON shape of a product.
type ProductResponse struct {
	ID             uuid.UUID `json:"id"`
	StorefrontID   uuid.UUID `json:"storefront_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description,omitempty"`
	Category       *string   `json:"category,omitempty"`
	Price          string    `json:"price"`
	PriceCents     int64     `json:"price_cents"`
	SalePrice      *string   `json:"sale_price,omitempty"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	SKU            *string   `json:"sku,omitempty"`
	IsFeatured     bool      `json:"is_featured"`
	IsActive       bool      `json:"is_active"`
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func toResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		StorefrontID: p.StorefrontID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Category:     p.Category,
		Price:        formatCents(p.PriceCents),
		PriceCents:   p.PriceCents,
		SKU:          p.SKU,
		IsFeatured:   p.IsFeatured,
		IsActive:     p.IsActive,
	}
	if p.SalePriceCents != nil {
		formatted := formatCents(*p.SalePriceCents)
		resp.SalePrice = &formatted
		resp.SalePriceCents = p.SalePriceCents
	}
	return resp
}

// List serves the public catalog with optional filters.
// GET /v1/products?storefront=<id>&category=<name>&featured=1&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{}
	q := r.URL.Query()

	if v := q.Get("storefront"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid storefront id")
			return
		}
		filter.StorefrontID = &id
	}
	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	filter.FeaturedOnly = q.Get("featured") == "1" || q.Get("featured") == "true"
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toResponse(p))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"products": resp})
}

// Get serves one active product by slug.
// GET /v1/products/{slug}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	product, err := h.products.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(product))
}

type UpsertRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	Category       *string `json:"category"`
	PriceCents     int64   `json:"price_cents"`
	SalePriceCents *int64  `json:"sale_price_cents"`
	SKU            *string `json:"sku"`
	IsFeatured     bool    `json:"is_featured"`
	IsActive       bool    `json:"is_active"`
}

func (req *UpsertRequest) validate() map[string]string {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if req.PriceCents <= 0 {
		fields["price_cents"] = "price must be positive"
	}
	if req.SalePriceCents != nil && (*req.SalePriceCents <= 0 || *req.SalePriceCents >= req.PriceCents) {
		fields["sale_price_cents"] = "sale price must be positive and below the regular price"
	}
	return fields
}

// storefrontForWrite loads the storefront and checks the caller may manage it.
func (h *Handler) storefrontForWrite(w http.ResponseWriter, r *http.Request) (*domain.Storefront, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	userID, _ := middleware.GetUserID(r.Context())

	storefrontID, err := uuid.Parse(chi.URLParam(r, "storefrontID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid storefront id")
		return nil, false
	}

	sf, err := h.storefronts.GetByID(r.Context(), storefrontID)
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

// AdminList lists all products of a storefront, inactive included.
// GET /v1/admin/storefronts/{storefrontID}/products
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.storefrontForWrite(w, r)
	if !ok {
		return
	}

	products, err := h.products.ListByStorefront(r.Context(), sf.ID)
	if err != nil {
		h.logger.Error("failed to list products", "error", err, "storefront_id", sf.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toResponse(p))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"products": resp})
}

// Create adds a product to a storefront.
// POST /v1/admin/storefronts/{storefrontID}/products
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.storefrontForWrite(w, r)
	if !ok {
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		httputil.ValidationError(w, "validation failed", fields)
		return
	}

	slug := domain.Slugify(req.Name)
	taken, err := h.products.ExistsBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("failed to check slug", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	if taken {
		// Suffix with a short random id so similarly named products coexist.
		slug = fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
	}

	now := time.Now()
	product := &domain.Product{
		ID:             uuid.New(),
		StorefrontID:   sf.ID,
		Name:           req.Name,
		Slug:           slug,
		Description:    req.Description,
		Category:       req.Category,
		PriceCents:     req.PriceCents,
		SalePriceCents: req.SalePriceCents,
		SKU:            req.SKU,
		IsFeatured:     req.IsFeatured,
		IsActive:       req.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.products.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "storefront_id", sf.ID)
	httputil.JSON(w, http.StatusCreated, toResponse(product))
}

// Update modifies a product. A price change is recorded in the price
// history in the same transaction as the update.
// PUT /v1/admin/storefronts/{storefrontID}/products/{productID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.storefrontForWrite(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		httputil.ValidationError(w, "validation failed", fields)
		return
	}

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if product.StorefrontID != sf.ID {
		httputil.Error(w, http.StatusNotFound, "product not found")
		return
	}

	oldPrice := product.PriceCents
	userID, _ := middleware.GetUserID(r.Context())

	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.PriceCents = req.PriceCents
	product.SalePriceCents = req.SalePriceCents
	product.SKU = req.SKU
	product.IsFeatured = req.IsFeatured
	product.IsActive = req.IsActive

	err = repository.Tx(r.Context(), h.db, func(tx *sql.Tx) error {
		if err := h.products.UpdateTx(r.Context(), tx, product); err != nil {
			return err
		}
		if oldPrice != product.PriceCents {
			return h.products.RecordPriceChangeTx(r.Context(), tx, &domain.PriceChange{
				ID:            uuid.New(),
				ProductID:     product.ID,
				OldPriceCents: oldPrice,
				NewPriceCents: product.PriceCents,
				ChangedBy:     userID,
				ChangedAt:     time.Now(),
			})
		}
		return nil
	})
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "product_id", product.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.logger.Info("product updated", "product_id", product.ID)
	httputil.JSON(w, http.StatusOK, toResponse(product))
}

// Delete soft-deletes a product.
// DELETE /v1/admin/storefronts/{storefrontID}/products/{productID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.storefrontForWrite(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	if product.StorefrontID != sf.ID {
		httputil.Error(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.products.SoftDelete(r.Context(), productID); err != nil {
		h.logger.Error("failed to delete product", "error", err, "product_id", productID)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.logger.Info("product deleted", "product_id", productID)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// PriceHistory lists past price changes of a product.
// GET /v1/admin/storefronts/{storefrontID}/products/{productID}/price-history
func (h *Handler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.storefrontForWrite(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if product.StorefrontID != sf.ID {
		httputil.Error(w, http.StatusNotFound, "product not found")
		return
	}

	changes, err := h.products.PriceHistory(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to load price history", "error", err, "product_id", productID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	resp := make([]PriceChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, PriceChangeResponse{
			OldPriceCents: c.OldPriceCents,
			NewPriceCents: c.NewPriceCents,
			ChangedBy:     c.ChangedBy,
			ChangedAt:     c.ChangedAt,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"price_history": resp})
}

// PriceChangeResponse is one entry of a product's price history.
type PriceChangeResponse struct {
	OldPriceCents int64     `json:"old_price_cents"`
	NewPriceCents int64     `json:"new_price_cents"`
	ChangedBy     uuid.UUID `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}
