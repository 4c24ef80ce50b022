package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
)

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var customer domain.Customer
	if !h.decodeJSON(w, r, &customer) {
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := h.checkout.Checkout(r.Context(), s.Cart, customer)
	switch {
	case err == nil:
		h.respondWithJSON(w, http.StatusCreated, res)
	case errors.Is(err, checkout.ErrInvalidCustomer):
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrNoContactPhone):
		h.respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("checkout failed", "session_id", s.ID, "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to place order")
	}
}

// Receipt renders a placed order, as returned by Checkout, to PDF.
func (h *HTTPHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if !h.decodeJSON(w, r, &order) {
		return
	}
	if order.ID == "" || len(order.Items) == 0 {
		h.respondWithError(w, http.StatusBadRequest, "Order id and items are required")
		return
	}

	pdf, filename, err := h.checkout.Receipt(order)
	if err != nil {
		h.logger.Error("receipt rendering failed", "order_id", order.ID, "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to render receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("failed to write receipt", "error", err)
	}
}
