package api

import (
	"net/http"

	"storefront-service/internal/cart"
	"storefront-service/internal/domain"
)

// CartResponse is the cart with its derived totals.
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

func cartResponse(c *cart.Cart) CartResponse {
	return CartResponse{
		Items:      c.Items(),
		TotalItems: c.TotalItemCount(),
		TotalPrice: c.TotalPrice(),
	}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithJSON(w, http.StatusOK, cartResponse(s.Cart))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cart.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CartItemInput selects the product to add.
type CartItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartItemInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	s, ok := h.session(w, r)
	if !ok || !h.loadCatalog(w, r, s) {
		return
	}
	p, found := s.Products.Product(input.ProductID)
	if !found {
		h.respondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	s.Cart.AddItem(r.Context(), p)
	h.respondWithJSON(w, http.StatusOK, cartResponse(s.Cart))
}

// QuantityInput sets a line's quantity; zero or less removes the line.
type QuantityInput struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (h *HTTPHandler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	var input QuantityInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.Cart.Contains(id) {
		h.respondWithError(w, http.StatusNotFound, "Product is not in the cart")
		return
	}
	s.Cart.SetQuantity(r.Context(), id, *input.Quantity)
	h.respondWithJSON(w, http.StatusOK, cartResponse(s.Cart))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cart.RemoveItem(r.Context(), id)
	h.respondWithJSON(w, http.StatusOK, cartResponse(s.Cart))
}
