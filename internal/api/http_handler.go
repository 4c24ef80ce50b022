package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
	"storefront-service/internal/session"
	"storefront-service/internal/storeapi"
)

// SessionProvider hands out the per-visitor state containers.
type SessionProvider interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// ConfigService manages the tenant's branding document.
type ConfigService interface {
	Get() domain.StoreConfig
	Replace(ctx context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error)
	Sync(ctx context.Context) (domain.StoreConfig, error)
	Publish(ctx context.Context) error
}

// CheckoutService places orders and renders receipts.
type CheckoutService interface {
	Checkout(ctx context.Context, c checkout.Cart, customer domain.Customer) (checkout.Result, error)
	Receipt(o domain.Order) ([]byte, string, error)
}

// ProductAdmin edits the remote catalog.
type ProductAdmin interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Invalidator drops a cached catalog after an admin edit.
type Invalidator interface {
	Invalidate()
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Sessions   SessionProvider
	Config     ConfigService
	Checkout   CheckoutService
	Admin      ProductAdmin
	Catalog    Invalidator  // may be nil
	Health     http.Handler // may be nil
	AdminToken string       // empty disables the admin routes
	Logger     *slog.Logger
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	sessions   SessionProvider
	config     ConfigService
	checkout   CheckoutService
	admin      ProductAdmin
	catalog    Invalidator
	health     http.Handler
	adminToken string
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(d Deps) *HTTPHandler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		sessions:   d.Sessions,
		config:     d.Config,
		checkout:   d.Checkout,
		admin:      d.Admin,
		catalog:    d.Catalog,
		health:     d.Health,
		adminToken: d.AdminToken,
		logger:     logger,
		validate:   validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginationInfo is the paging block of list responses.
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	writeJSON(w, code, payload, h.logger)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
	}
}

func (h *HTTPHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// session resolves the caller's session; on failure the response is written.
func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.logger.Error("session lookup failed", "error", err)
		h.respondWithError(w, http.StatusServiceUnavailable, "Session storage unavailable")
		return nil, false
	}
	return s, true
}

func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// upstreamStatus maps a store API failure to the status reported to clients.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, storeapi.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, storeapi.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var apiErr *storeapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		if h.health != nil {
			r.Method(http.MethodGet, "/healthz", h.health)
		}

		r.Group(func(r chi.Router) {
			r.Use(h.withSession)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Get("/filters", h.GetFilters)
				r.Patch("/filters", h.UpdateFilters)
				r.Get("/featured", h.ListFeatured)
				r.Get("/{productId}", h.GetProductByID)
			})

			r.Route("/feed", func(r chi.Router) {
				r.Get("/", h.GetFeed)
				r.Post("/next", h.NextFeedPage)
				r.Post("/retry", h.RetryFeedPage)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Put("/items/{productId}", h.SetCartItemQuantity)
				r.Delete("/items/{productId}", h.RemoveCartItem)
			})

			r.Post("/checkout", h.Checkout)
		})

		r.Post("/checkout/receipt", h.Receipt)
		r.Get("/config", h.GetConfig)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Put("/config", h.ReplaceConfig)
			r.Post("/config/sync", h.SyncConfig)
			r.Post("/config/publish", h.PublishConfig)

			r.Route("/admin/products", func(r chi.Router) {
				r.Post("/", h.CreateProduct)
				r.Put("/{productId}", h.UpdateProduct)
				r.Delete("/{productId}", h.DeleteProduct)
			})
		})
	})
}
