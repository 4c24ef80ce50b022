package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/session"
)

const maxPageSize = 100

// loadCatalog makes sure the session's product store is populated.
func (h *HTTPHandler) loadCatalog(w http.ResponseWriter, r *http.Request, s *session.Session) bool {
	if err := s.Products.FetchCatalog(r.Context()); err != nil {
		h.logger.Error("catalog fetch failed", "session_id", s.ID, "error", err)
		h.respondWithError(w, upstreamStatus(err), "Failed to load catalog")
		return false
	}
	return true
}

// ListProducts serves one page of the filtered view.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok || !h.loadCatalog(w, r, s) {
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = s.Products.Criteria().PageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	filtered := s.Products.Filtered()
	items, totalPages := catalog.Page(filtered, page, limit)

	response := struct {
		Data       []domain.Product `json:"data"`
		Pagination PaginationInfo   `json:"pagination"`
	}{
		Data: items,
		Pagination: PaginationInfo{
			Page:       page,
			Limit:      limit,
			TotalItems: len(filtered),
			TotalPages: totalPages,
		},
	}
	h.respondWithJSON(w, http.StatusOK, response)
}

func (h *HTTPHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithJSON(w, http.StatusOK, s.Products.Criteria())
}

// FiltersInput is a partial criteria update.
type FiltersInput struct {
	MinPrice *float64        `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *float64        `json:"max_price" validate:"omitempty,gte=-1"`
	Category *string         `json:"category" validate:"omitempty,max=100"`
	Search   *string         `json:"search" validate:"omitempty,max=200"`
	SortBy   *domain.SortKey `json:"sort_by"`
	PageSize *int            `json:"page_size" validate:"omitempty,gte=1,lte=100"`
}

func (h *HTTPHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var input FiltersInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.SortBy != nil && !input.SortBy.Valid() {
		h.respondWithError(w, http.StatusBadRequest, "Invalid sort_by value")
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	criteria := s.Products.SetFilters(r.Context(), domain.CriteriaPatch{
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		Category: input.Category,
		Search:   input.Search,
		SortBy:   input.SortBy,
		PageSize: input.PageSize,
	})
	h.respondWithJSON(w, http.StatusOK, criteria)
}

func (h *HTTPHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok || !h.loadCatalog(w, r, s) {
		return
	}
	h.respondWithJSON(w, http.StatusOK, struct {
		Data []domain.Product `json:"data"`
	}{Data: s.Products.Featured()})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	s, ok := h.session(w, r)
	if !ok || !h.loadCatalog(w, r, s) {
		return
	}
	p, found := s.Products.Product(id)
	if !found {
		h.respondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	h.respondWithJSON(w, http.StatusOK, p)
}
