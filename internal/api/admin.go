package api

import (
	"net/http"

	"storefront-service/internal/domain"
)

// ProductInput defines the expected input for creating or updating a product.
type ProductInput struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required,max=100"`
	Discount    *float64 `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Image       string   `json:"image" validate:"omitempty,url,max=2048"`
	Sizes       []string `json:"sizes" validate:"omitempty,max=50,dive,max=40"`
	Colors      []string `json:"colors" validate:"omitempty,max=50,dive,max=40"`
}

func (in ProductInput) toDomain(id int64) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Discount:    in.Discount,
		Image:       in.Image,
		Sizes:       in.Sizes,
		Colors:      in.Colors,
	}
}

func (h *HTTPHandler) readProductInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var input ProductInput
	if !h.decodeJSON(w, r, &input) {
		return input, false
	}
	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return input, false
	}
	return input, true
}

func (h *HTTPHandler) invalidateCatalog() {
	if h.catalog != nil {
		h.catalog.Invalidate()
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readProductInput(w, r)
	if !ok {
		return
	}
	created, err := h.admin.CreateProduct(r.Context(), input.toDomain(0))
	if err != nil {
		h.logger.Error("CreateProduct failed", "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to create product")
		return
	}
	h.invalidateCatalog()
	h.respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	input, ok := h.readProductInput(w, r)
	if !ok {
		return
	}
	updated, err := h.admin.UpdateProduct(r.Context(), input.toDomain(id))
	if err != nil {
		h.logger.Error("UpdateProduct failed", "product_id", id, "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to update product")
		return
	}
	h.invalidateCatalog()
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.admin.DeleteProduct(r.Context(), id); err != nil {
		h.logger.Error("DeleteProduct failed", "product_id", id, "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to delete product")
		return
	}
	h.invalidateCatalog()
	w.WriteHeader(http.StatusNoContent)
}
