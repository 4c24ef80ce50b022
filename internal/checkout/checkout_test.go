package checkout

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/cart"
	"storefront-service/internal/domain"
	"storefront-service/internal/numfmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticStore struct {
	cfg domain.StoreConfig
}

func (s staticStore) Get() domain.StoreConfig { return s.cfg }

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func storeWithPhone(phone string) staticStore {
	cfg := domain.DefaultStoreConfig()
	cfg.StoreName = "Acme"
	cfg.Footer.Contact.Phone = phone
	return staticStore{cfg: cfg}
}

func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	ctx := context.Background()
	c := cart.New(nil, nil)
	c.AddItem(ctx, domain.Product{ID: 1, Title: "Linen Shirt", Price: 25})
	c.AddItem(ctx, domain.Product{ID: 1, Title: "Linen Shirt", Price: 25})
	c.AddItem(ctx, domain.Product{ID: 2, Title: "Mug", Price: 1250})
	return c
}

var customer = domain.Customer{Name: "Ana Lima", Phone: "+55 11 99999-0000", Address: "Rua A, 10"}

func TestCheckout_PlacesOrder(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("PublishOrderPlaced", mock.Anything, mock.AnythingOfType("domain.Order")).Return(nil).Once()

	svc := New(storeWithPhone("+1 (555) 010-0199"), pub, Config{Locale: "en"}, nil)
	fixed := time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	c := filledCart(t)
	res, err := svc.Checkout(ctx, c, customer)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Order.ID)
	assert.Equal(t, "Acme", res.Order.StoreName)
	assert.Equal(t, 3, res.Order.ItemCount)
	assert.Equal(t, 1300.0, res.Order.Total)
	assert.Equal(t, "USD", res.Order.Currency)
	assert.Equal(t, fixed, res.Order.PlacedAt)
	require.Len(t, res.Order.Items, 2)

	assert.Contains(t, res.Message, "New order for Acme")
	assert.Contains(t, res.Message, "- 2 x Linen Shirt @ 25.00 = 50.00")
	assert.Contains(t, res.Message, "- 1 x Mug @ 1,250.00 = 1,250.00")
	assert.Contains(t, res.Message, "Total: USD 1,300.00")

	require.True(t, strings.HasPrefix(res.DeepLink, "https://wa.me/15550100199?text="))
	assert.NotContains(t, res.DeepLink, "+")
	u, err := url.Parse(res.DeepLink)
	require.NoError(t, err)
	assert.Equal(t, res.Message, u.Query().Get("text"))

	assert.Empty(t, c.Items(), "cart is cleared after checkout")
	pub.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	pub := new(MockPublisher)
	svc := New(storeWithPhone("5550100"), pub, Config{}, nil)

	_, err := svc.Checkout(context.Background(), cart.New(nil, nil), customer)
	assert.ErrorIs(t, err, ErrEmptyCart)
	pub.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
}

func TestCheckout_NoContactPhone(t *testing.T) {
	svc := New(storeWithPhone("n/a"), nil, Config{}, nil)
	c := filledCart(t)

	_, err := svc.Checkout(context.Background(), c, customer)
	assert.ErrorIs(t, err, ErrNoContactPhone)
	assert.Len(t, c.Items(), 2, "cart is kept when checkout fails")
}

// drainOnlyCart implements nothing beyond the Cart interface.
type drainOnlyCart struct {
	items  []domain.CartItem
	drains int
}

func (c *drainOnlyCart) TotalItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *drainOnlyCart) Drain(context.Context) ([]domain.CartItem, int, float64) {
	c.drains++
	items := c.items
	c.items = nil
	return items, 7, 70
}

func TestCheckout_OrderUsesDrainedTotals(t *testing.T) {
	svc := New(storeWithPhone("5550100"), nil, Config{}, nil)
	c := &drainOnlyCart{items: []domain.CartItem{{ProductID: 1, Title: "Tee", UnitPrice: 10, Quantity: 7}}}

	res, err := svc.Checkout(context.Background(), c, customer)
	require.NoError(t, err)
	assert.Equal(t, 1, c.drains)
	assert.Equal(t, 7, res.Order.ItemCount)
	assert.Equal(t, 70.0, res.Order.Total)
	assert.Len(t, res.Order.Items, 1)
}

// emptiedCart is checked out by another request between the count and the drain.
type emptiedCart struct{}

func (emptiedCart) TotalItemCount() int { return 1 }

func (emptiedCart) Drain(context.Context) ([]domain.CartItem, int, float64) { return nil, 0, 0 }

func TestCheckout_CartEmptiedBeforeDrain(t *testing.T) {
	pub := new(MockPublisher)
	svc := New(storeWithPhone("5550100"), pub, Config{}, nil)

	_, err := svc.Checkout(context.Background(), emptiedCart{}, customer)
	assert.ErrorIs(t, err, ErrEmptyCart)
	pub.AssertNotCalled(t, "PublishOrderPlaced", mock.Anything, mock.Anything)
}

func TestCheckout_UnroundedTotalIsRoundedForDisplay(t *testing.T) {
	ctx := context.Background()
	svc := New(storeWithPhone("5550100"), nil, Config{Locale: "en"}, nil)
	c := cart.New(nil, nil)
	c.AddItem(ctx, domain.Product{ID: 1, Title: "Ribbon", Price: 9.999})
	c.AddItem(ctx, domain.Product{ID: 1, Title: "Ribbon", Price: 9.999})

	res, err := svc.Checkout(ctx, c, customer)
	require.NoError(t, err)
	assert.Equal(t, 19.998, res.Order.Total)
	assert.Contains(t, res.Message, "Total: USD 20.00")
}

func TestCheckout_InvalidCustomer(t *testing.T) {
	svc := New(storeWithPhone("5550100"), nil, Config{}, nil)
	_, err := svc.Checkout(context.Background(), filledCart(t), domain.Customer{Name: "", Phone: "1"})
	assert.ErrorIs(t, err, ErrInvalidCustomer)
}

func TestCheckout_PublishFailureDoesNotFailOrder(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := New(storeWithPhone("5550100"), pub, Config{}, nil)
	c := filledCart(t)

	res, err := svc.Checkout(context.Background(), c, customer)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.ID)
	assert.Empty(t, c.Items())
}

func TestCheckout_StoreLocaleFormatsNumbers(t *testing.T) {
	store := storeWithPhone("5550100")
	store.cfg.Locale = "de"
	store.cfg.Currency = "EUR"
	svc := New(store, nil, Config{Locale: "en"}, nil)

	res, err := svc.Checkout(context.Background(), filledCart(t), customer)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Total: EUR 1.300,00")
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://wa.me/5511999990000?text=Hello%20world%21%0AOK%3F",
		DeepLink("+55 (11) 99999-0000", "Hello world!\nOK?"))
	assert.Equal(t, "https://wa.me/?text=", DeepLink("", ""))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "15550100199", Digits("+1 (555) 010-0199"))
	assert.Equal(t, "", Digits("call us"))
}

func TestRenderReceipt(t *testing.T) {
	order := domain.Order{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		StoreName: "Café Acme",
		Customer:  domain.Customer{Name: "José", Phone: "5550100", Notes: "Leave at the door"},
		Items: []domain.CartItem{
			{ProductID: 1, Title: "Crème brûlée mug", UnitPrice: 12.5, Quantity: 2},
		},
		ItemCount: 2,
		Total:     25,
		Currency:  "EUR",
		PlacedAt:  time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC),
	}

	pdf, name, err := RenderReceipt(order, numfmt.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "order-0F8FAD5B.pdf", name)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 500)
}
