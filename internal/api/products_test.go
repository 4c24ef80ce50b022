package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/storeapi"
)

type productPage struct {
	Data       []domain.Product `json:"data"`
	Pagination PaginationInfo   `json:"pagination"`
}

func TestHTTPHandler_ListProducts_Pagination(t *testing.T) {
	env := setupTestChiServer(t, "")
	env.source.On("FetchProducts", mock.Anything).Return(makeCatalog(15), nil).Once()

	res := env.do(t, http.MethodGet, "/api/v1/products?limit=10&page=2", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, testSessionID, res.Header.Get(SessionHeader))

	page := decode[productPage](t, res)
	require.Len(t, page.Data, 5)
	assert.Equal(t, int64(11), page.Data[0].ID)
	assert.Equal(t, PaginationInfo{Page: 2, Limit: 10, TotalItems: 15, TotalPages: 2}, page.Pagination)

	// Second request reuses the session's catalog
	res = env.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page = decode[productPage](t, res)
	assert.Len(t, page.Data, domain.DefaultPageSize)
	env.source.AssertNumberOfCalls(t, "FetchProducts", 1)
}

func TestHTTPHandler_ListProducts_PageBeyondRange(t *testing.T) {
	env := setupTestChiServer(t, "")
	env.source.On("FetchProducts", mock.Anything).Return(makeCatalog(5), nil).Once()

	res := env.do(t, http.MethodGet, "/api/v1/products?limit=12&page=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	page := decode[productPage](t, res)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	assert.Equal(t, 5, page.Pagination.TotalItems)
}

func TestHTTPHandler_IssuesSessionWhenMissing(t *testing.T) {
	env := setupTestChiServer(t, "")
	env.source.On("FetchProducts", mock.Anything).Return(makeCatalog(1), nil)

	res, err := http.Get(env.server.URL + "/api/v1/products")
	require.NoError(t, err)
	defer res.Body.Close()

	id := res.Header.Get(SessionHeader)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	require.NotEmpty(t, res.Cookies())
	assert.Equal(t, SessionCookie, res.Cookies()[0].Name)
	assert.Equal(t, id, res.Cookies()[0].Value)
}

func TestHTTPHandler_Filters(t *testing.T) {
	env := setupTestChiServer(t, "")
	env.source.On("FetchProducts", mock.Anything).Return([]domain.Product{
		{ID: 1, Title: "B", Price: 10, Category: "a"},
		{ID: 2, Title: "A", Price: 5, Category: "a"},
		{ID: 3, Title: "C", Price: 20, Category: "b"},
	}, nil)

	res := env.do(t, http.MethodPatch, "/api/v1/products/filters", map[string]interface{}{
		"category": "a",
		"sort_by":  "price_asc",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	criteria := decode[domain.Criteria](t, res)
	assert.Equal(t, "a", criteria.Category)
	assert.Equal(t, domain.SortPriceAsc, criteria.SortBy)
	assert.Equal(t, domain.NoUpperBound, criteria.MaxPrice)

	res = env.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := decode[productPage](t, res)
	require.Len(t, page.Data, 2)
	assert.Equal(t, []int64{2, 1}, []int64{page.Data[0].ID, page.Data[1].ID})

	res = env.do(t, http.MethodGet, "/api/v1/products/filters", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "a", decode[domain.Criteria](t, res).Category)
}

func TestHTTPHandler_UpdateFilters_Invalid(t *testing.T) {
	env := setupTestChiServer(t, "")

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown sort", map[string]interface{}{"sort_by": "random"}},
		{"negative min", map[string]interface{}{"min_price": -5}},
		{"page size too big", map[string]interface{}{"page_size": 1000}},
		{"not json", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.do(t, http.MethodPatch, "/api/v1/products/filters", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func TestHTTPHandler_FeaturedAndByID(t *testing.T) {
	env := setupTestChiServer(t, "")
	env.source.On("FetchProducts", mock.Anything).Return(makeCatalog(14), nil)

	res := env.do(t, http.MethodGet, "/api/v1/products/featured", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	featured := decode[struct {
		Data []domain.Product `json:"data"`
	}](t, res)
	assert.Len(t, featured.Data, 10)

	res = env.do(t, http.MethodGet, "/api/v1/products/3", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(3), decode[domain.Product](t, res).ID)

	res = env.do(t, http.MethodGet, "/api/v1/products/99", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHTTPHandler_CatalogUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad gateway", errors.New("connection reset"), http.StatusBadGateway},
		{"breaker open", fmt.Errorf("storeapi: FetchProducts failed: %w", storeapi.ErrUnavailable), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestChiServer(t, "")
			env.source.On("FetchProducts", mock.Anything).Return(nil, tt.err)

			res := env.do(t, http.MethodGet, "/api/v1/products", nil)
			assert.Equal(t, tt.want, res.StatusCode)
			assert.Equal(t, "Failed to load catalog", decode[ErrorResponse](t, res).Error)
		})
	}
}
