package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
	"storefront-service/internal/kvstore"
	"storefront-service/internal/session"
)

const (
	testAdminToken = "s3cret"
	testSessionID  = "4f9d6a2e-8c1b-4e37-9a55-0d2c7b1e6f10"
)

// MockSource is a mock implementation of catalog.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

// MockPageSource is a mock implementation of feed.PageSource
type MockPageSource struct {
	mock.Mock
}

func (m *MockPageSource) FetchPage(ctx context.Context, c domain.Criteria, page int) ([]domain.Product, error) {
	args := m.Called(ctx, c, page)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

// MockConfigService is a mock implementation of ConfigService
type MockConfigService struct {
	mock.Mock
}

func (m *MockConfigService) Get() domain.StoreConfig {
	return m.Called().Get(0).(domain.StoreConfig)
}

func (m *MockConfigService) Replace(ctx context.Context, cfg domain.StoreConfig) (domain.StoreConfig, error) {
	args := m.Called(ctx, cfg)
	return args.Get(0).(domain.StoreConfig), args.Error(1)
}

func (m *MockConfigService) Sync(ctx context.Context) (domain.StoreConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.StoreConfig), args.Error(1)
}

func (m *MockConfigService) Publish(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockCheckoutService is a mock implementation of CheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, c checkout.Cart, customer domain.Customer) (checkout.Result, error) {
	args := m.Called(ctx, c, customer)
	return args.Get(0).(checkout.Result), args.Error(1)
}

func (m *MockCheckoutService) Receipt(o domain.Order) ([]byte, string, error) {
	args := m.Called(o)
	var pdf []byte
	if arg0 := args.Get(0); arg0 != nil {
		pdf = arg0.([]byte)
	}
	return pdf, args.String(1), args.Error(2)
}

// MockProductAdmin is a mock implementation of ProductAdmin
type MockProductAdmin struct {
	mock.Mock
}

func (m *MockProductAdmin) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductAdmin) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductAdmin) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() { c.calls++ }

type testEnv struct {
	server      *httptest.Server
	source      *MockSource
	pages       *MockPageSource
	config      *MockConfigService
	checkout    *MockCheckoutService
	admin       *MockProductAdmin
	invalidator *countingInvalidator
	kv          *kvstore.Memory
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, adminToken string) *testEnv {
	t.Helper()
	env := &testEnv{
		source:      new(MockSource),
		pages:       new(MockPageSource),
		config:      new(MockConfigService),
		checkout:    new(MockCheckoutService),
		admin:       new(MockProductAdmin),
		invalidator: &countingInvalidator{},
		kv:          kvstore.NewMemory(),
	}
	sessions := session.NewManager(env.kv, env.source, env.pages, session.Config{FeedCooldown: time.Hour}, nil)

	handler := NewHTTPHandler(Deps{
		Sessions:   sessions,
		Config:     env.config,
		Checkout:   env.checkout,
		Admin:      env.admin,
		Catalog:    env.invalidator,
		Health:     NewHealthReporter(env.kv, nil),
		AdminToken: adminToken,
	})
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

// do sends a request on behalf of the test session.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, testSessionID)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

func makeCatalog(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{
			ID:       int64(i + 1),
			Title:    "Product " + string(rune('A'+i)),
			Price:    float64(10 * (i + 1)),
			Category: []string{"tops", "bottoms"}[i%2],
		}
	}
	return out
}
