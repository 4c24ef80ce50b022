// Package cart holds a session's shopping cart: an insertion-ordered
// collection of line items keyed by product id, written through to a
// Persister after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
	"storefront-service/internal/numfmt"
)

// Persister stores the full item list. Cart never surfaces its errors.
type Persister interface {
	Save(ctx context.Context, items []domain.CartItem) error
}

type Cart struct {
	mu        sync.RWMutex
	items     []domain.CartItem
	persister Persister
	logger    *slog.Logger
}

// New creates an empty cart. persister may be nil.
func New(persister Persister, logger *slog.Logger) *Cart {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cart{persister: persister, logger: logger}
}

// AddItem increments the quantity of an existing line by one or appends a
// new line with quantity one.
func (c *Cart) AddItem(ctx context.Context, p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(p.ID); i >= 0 {
		c.items[i].Quantity++
	} else {
		c.items = append(c.items, domain.NewCartItem(p))
	}
	c.persist(ctx)
}

// RemoveItem drops the line for productID. Unknown ids are ignored.
func (c *Cart) RemoveItem(ctx context.Context, productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remove(productID) {
		c.persist(ctx)
	}
}

// SetQuantity sets the quantity of a line; quantity <= 0 removes it.
func (c *Cart) SetQuantity(ctx context.Context, productID int64, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		if c.remove(productID) {
			c.persist(ctx)
		}
		return
	}
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = quantity
	c.persist(ctx)
}

func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.persist(ctx)
}

// Contains reports whether the cart has a line for productID.
func (c *Cart) Contains(productID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(productID) >= 0
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []domain.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.CartItem{}, c.items...)
}

// TotalItemCount is the sum of quantities; zero for an empty cart.
func (c *Cart) TotalItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.itemCount()
}

// TotalPrice sums unit price times quantity without rounding; callers round
// for display. Values that do not parse as numbers contribute zero.
func (c *Cart) TotalPrice() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.priceSum()
}

// Drain empties the cart and returns the lines it held with their item count
// and total price, all read under the same lock. An empty cart is not written.
func (c *Cart) Drain(ctx context.Context) ([]domain.CartItem, int, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return nil, 0, 0
	}
	items := append([]domain.CartItem{}, c.items...)
	count, total := c.itemCount(), c.priceSum()
	c.items = nil
	c.persist(ctx)
	return items, count, total
}

func (c *Cart) itemCount() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// priceSum adds in decimal so that 19.99 x 3 stays 59.97.
func (c *Cart) priceSum() float64 {
	opts := numfmt.DefaultOptions()
	opts.DecimalPlaces = numfmt.NoRounding
	total := decimal.Zero
	for _, it := range c.items {
		price := decimal.NewFromFloat(numfmt.ParseNumber(it.UnitPrice, opts))
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := total.Float64()
	return f
}

// Restore replaces the items with a persisted document without writing it
// back. Prices and quantities stored as strings or garbage go through the
// numeric fallback; lines that end up without a positive quantity are dropped.
func (c *Cart) Restore(raw []byte) {
	var stored []storedItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		c.logger.Warn("discarding unreadable cart document", "error", err)
		return
	}

	opts := numfmt.DefaultOptions()
	opts.DecimalPlaces = numfmt.NoRounding
	items := make([]domain.CartItem, 0, len(stored))
	seen := make(map[int64]int, len(stored))
	for _, s := range stored {
		id := int64(numfmt.ParseNumber(s.ProductID, numfmt.Options{DecimalPlaces: 0}))
		qty := int(numfmt.ParseNumber(s.Quantity, numfmt.Options{DecimalPlaces: 0}))
		if id == 0 || qty <= 0 {
			continue
		}
		if i, ok := seen[id]; ok {
			items[i].Quantity += qty
			continue
		}
		seen[id] = len(items)
		items = append(items, domain.CartItem{
			ProductID: id,
			Title:     s.Title,
			Image:     s.Image,
			Category:  s.Category,
			UnitPrice: numfmt.ParseNumber(s.UnitPrice, opts),
			Quantity:  qty,
		})
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// storedItem is the lenient decoding of a persisted line item.
type storedItem struct {
	ProductID any    `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	UnitPrice any    `json:"price"`
	Quantity  any    `json:"quantity"`
}

func (c *Cart) indexOf(productID int64) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(productID int64) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// persist must be called with c.mu held.
func (c *Cart) persist(ctx context.Context) {
	if c.persister == nil {
		return
	}
	snapshot := append([]domain.CartItem{}, c.items...)
	if err := c.persister.Save(ctx, snapshot); err != nil {
		c.logger.Warn("failed to persist cart", "error", err, "items", len(snapshot))
	}
}
