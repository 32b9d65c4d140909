package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/novamall/mall-backend/internal/auth"
	"github.com/novamall/mall-backend/internal/config"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/http/features/account"
	"github.com/novamall/mall-backend/internal/http/features/cart"
	"github.com/novamall/mall-backend/internal/http/features/mfa"
	"github.com/novamall/mall-backend/internal/http/features/products"
	"github.com/novamall/mall-backend/internal/http/features/storefront"
	"github.com/novamall/mall-backend/internal/http/features/twofactor"
	"github.com/novamall/mall-backend/internal/http/middleware"
	"github.com/novamall/mall-backend/internal/httputil"
	"github.com/novamall/mall-backend/internal/notification"
	"github.com/novamall/mall-backend/internal/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger           *slog.Logger
	DB               *sql.DB
	PasswordService  *auth.PasswordService
	SessionService   *auth.SessionService
	TwoFactorService *auth.TwoFactorService
	MFAService       *auth.MFAService
	EmailService     *notification.EmailService
	UsersRepo        *repository.UsersRepository
	StorefrontsRepo  *repository.StorefrontsRepository
	ProductsRepo     *repository.ProductsRepository
	CartItemsRepo    *repository.CartItemsRepository
	OrdersRepo       *repository.OrdersRepository
	RateLimitConfig  config.RateLimitConfig
	SecurityHeaders  config.SecurityHeadersConfig
	Validation       config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	// Registration and login
	accountHandler := account.NewHandler(cfg.Logger, cfg.PasswordService, cfg.TwoFactorService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", accountHandler.Register)
		r.Post("/v1/auth/login", accountHandler.Login)
	})

	// Verification code lifecycle: email verification and login 2FA
	twoFactorHandler := twofactor.NewHandler(cfg.Logger, cfg.TwoFactorService, cfg.UsersRepo, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify"])
		r.Post("/v1/auth/send-verification", twoFactorHandler.SendVerification)
		r.Post("/v1/auth/verify", twoFactorHandler.VerifyRegistration)
		r.Post("/v1/auth/send-2fa-code", twoFactorHandler.SendTwoFactor)
		r.Post("/v1/auth/verify-2fa", twoFactorHandler.VerifyTwoFactor)
	})

	// TOTP MFA for back-office accounts
	mfaHandler := mfa.NewHandler(cfg.Logger, cfg.MFAService, cfg.UsersRepo, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify"])
		r.Post("/v1/auth/mfa/verify", mfaHandler.VerifyLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(middleware.RequireRole(domain.RoleStoreOwner, domain.RoleAdmin))
		r.Post("/v1/auth/mfa/setup", mfaHandler.Setup)
		r.Post("/v1/auth/mfa/enable", mfaHandler.Enable)
		r.Post("/v1/auth/mfa/disable", mfaHandler.Disable)
	})

	// Public catalog
	storefrontHandler := storefront.NewHandler(cfg.Logger, cfg.StorefrontsRepo)
	productsHandler := products.NewHandler(cfg.Logger, cfg.ProductsRepo, cfg.StorefrontsRepo, cfg.DB)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["api"])
		r.Get("/v1/storefronts", storefrontHandler.List)
		r.Get("/v1/storefronts/{slug}", storefrontHandler.Get)
		r.Get("/v1/products", productsHandler.List)
		r.Get("/v1/products/{slug}", productsHandler.Get)
	})

	// Cart and orders (customer, authenticated)
	var mailer cart.OrderMailer
	if cfg.EmailService != nil {
		mailer = cfg.EmailService
	}
	cartHandler := cart.NewHandler(cfg.Logger, cfg.DB, cfg.CartItemsRepo, cfg.ProductsRepo, cfg.OrdersRepo, cfg.UsersRepo, mailer)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["api"])
		r.Use(middleware.Auth(cfg.SessionService))
		r.Get("/v1/cart", cartHandler.Get)
		r.Post("/v1/cart/items", cartHandler.Add)
		r.Put("/v1/cart/items/{itemID}", cartHandler.Update)
		r.Delete("/v1/cart/items/{itemID}", cartHandler.Remove)
		r.Post("/v1/cart/checkout", cartHandler.Checkout)
		r.Get("/v1/orders", cartHandler.ListOrders)
		r.Get("/v1/orders/{orderID}", cartHandler.GetOrder)
	})

	// Back-office management (store owners and admins)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["api"])
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(middleware.RequireRole(domain.RoleStoreOwner, domain.RoleAdmin))
		r.Get("/v1/admin/storefronts", storefrontHandler.List)
		r.Post("/v1/admin/storefronts", storefrontHandler.Create)
		r.Put("/v1/admin/storefronts/{storefrontID}", storefrontHandler.Update)
		r.Delete("/v1/admin/storefronts/{storefrontID}", storefrontHandler.Delete)
		r.Get("/v1/admin/storefronts/{storefrontID}/products", productsHandler.AdminList)
		r.Post("/v1/admin/storefronts/{storefrontID}/products", productsHandler.Create)
		r.Put("/v1/admin/storefronts/{storefrontID}/products/{productID}", productsHandler.Update)
		r.Delete("/v1/admin/storefronts/{storefrontID}/products/{productID}", productsHandler.Delete)
		r.Get("/v1/admin/storefronts/{storefrontID}/products/{productID}/price-history", productsHandler.PriceHistory)
	})

	return r
}
