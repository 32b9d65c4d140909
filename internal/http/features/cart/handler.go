package cart

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
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

// OrderMailer sends order confirmation emails. It may be nil when SMTP is
// not configured; checkout still succeeds, the email is just skipped.
type OrderMailer interface {
	SendOrderConfirmation(to string, order *domain.Order) error
}

// Handler handles the authenticated shopping cart and checkout.
type Handler struct {
	logger   *slog.Logger
	db       *sql.DB
	cart     *repository.CartItemsRepository
	products *repository.ProductsRepository
	orders   *repository.OrdersRepository
	users    *repository.UsersRepository
	mailer   OrderMailer
}

// NewHandler creates a new cart handler. mailer may be nil.
func NewHandler(
	logger *slog.Logger,
	db *sql.DB,
	cart *repository.CartItemsRepository,
	products *repository.ProductsRepository,
	orders *repository.OrdersRepository,
	users *repository.UsersRepository,
	mailer OrderMailer,
) *Handler {
	return &Handler{
		logger:   logger,
		db:       db,
		cart:     cart,
		products: products,
		orders:   orders,
		users:    users,
		mailer:   mailer,
	}
}

type AddRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type UpdateRequest struct {
	Quantity int `json:"quantity"`
}

type ItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	SubtotalCents  int64     `json:"subtotal_cents"`
}

type CartResponse struct {
	Items      []ItemResponse `json:"items"`
	TotalCents int64          `json:"total_cents"`
}

func buildCartResponse(items []*domain.CartItem) CartResponse {
	resp := CartResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, item := range items {
		unit := item.Product.EffectivePriceCents()
		subtotal := unit * int64(item.Quantity)
		resp.Items = append(resp.Items, ItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Product.Name,
			Slug:           item.Product.Slug,
			UnitPriceCents: unit,
			Quantity:       item.Quantity,
			SubtotalCents:  subtotal,
		})
		resp.TotalCents += subtotal
	}
	return resp
}

// Get returns the caller's cart with per-line subtotals.
// GET /v1/cart
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	items, err := h.cart.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	httputil.JSON(w, http.StatusOK, buildCartResponse(items))
}

// Add puts a product in the cart, bumping quantity if it is already there.
// POST /v1/cart/items
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		httputil.ValidationError(w, "validation failed", map[string]string{"quantity": "quantity must be at least 1"})
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			httputil.Error(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to load product", "error", err, "product_id", req.ProductID)
		httputil.Error(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}
	if !product.IsActive {
		httputil.Error(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.cart.Upsert(r.Context(), userID, product.ID, req.Quantity); err != nil {
		h.logger.Error("failed to add to cart", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	items, err := h.cart.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	httputil.JSON(w, http.StatusOK, buildCartResponse(items))
}

// Update sets the quantity of one cart line.
// PUT /v1/cart/items/{itemID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		httputil.ValidationError(w, "validation failed", map[string]string{"quantity": "quantity must be at least 1"})
		return
	}

	if err := h.cart.SetQuantity(r.Context(), userID, itemID, req.Quantity); err != nil {
		if errors.Is(err, domain.ErrCartItemNotFound) {
			httputil.Error(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("failed to update cart item", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update cart item")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Remove deletes one cart line.
// DELETE /v1/cart/items/{itemID}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.cart.Remove(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, domain.ErrCartItemNotFound) {
			httputil.Error(w, http.StatusNotFound, "cart item not found")
			return
		}
		h.logger.Error("failed to remove cart item", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to remove cart item")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Checkout converts the cart into a pending order. The order rows and the
// cart wipe commit in one transaction; prices and names are snapshotted at
// checkout time.
// POST /v1/cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	items, err := h.cart.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "checkout failed")
		return
	}
	if len(items) == 0 {
		httputil.Error(w, http.StatusBadRequest, "cart is empty")
		return
	}

	now := time.Now()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range items {
		unit := item.Product.EffectivePriceCents()
		order.Items = append(order.Items, domain.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			Name:           item.Product.Name,
			UnitPriceCents: unit,
			Quantity:       item.Quantity,
		})
		order.TotalCents += unit * int64(item.Quantity)
	}

	err = repository.Tx(r.Context(), h.db, func(tx *sql.Tx) error {
		if err := h.orders.CreateTx(r.Context(), tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := h.cart.ClearTx(r.Context(), tx, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		h.logger.Error("checkout failed", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	h.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total_cents", order.TotalCents)

	if h.mailer != nil {
		user, err := h.users.GetByID(r.Context(), userID)
		if err != nil {
			h.logger.Error("failed to load user for confirmation email", "error", err, "user_id", userID)
		} else if err := h.mailer.SendOrderConfirmation(user.Email, order); err != nil {
			h.logger.Error("failed to send order confirmation", "error", err, "order_id", order.ID)
		}
	}

	httputil.JSON(w, http.StatusCreated, toOrderResponse(order))
}

type OrderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

type OrderResponse struct {
	ID         uuid.UUID           `json:"id"`
	Status     domain.OrderStatus  `json:"status"`
	TotalCents int64               `json:"total_cents"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []OrderItemResponse `json:"items"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:         order.ID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		CreatedAt:  order.CreatedAt,
		Items:      make([]OrderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	return resp
}

// ListOrders returns the caller's order history, newest first.
// GET /v1/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// GetOrder returns one of the caller's orders with its line items.
// GET /v1/orders/{orderID}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.GetByID(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			httputil.Error(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to get order", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	httputil.JSON(w, http.StatusOK, toOrderResponse(order))
}
