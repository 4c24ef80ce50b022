package domain

import "time"

// CartItem is one line of the cart, keyed by product id. It carries a
// snapshot of the product taken when the item was first added.
type CartItem struct {
	ProductID int64   `json:"id"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
	Category  string  `json:"category"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// NewCartItem snapshots p with quantity 1. The unit price is the discounted price.
func NewCartItem(p Product) CartItem {
	return CartItem{
		ProductID: p.ID,
		Title:     p.Title,
		Image:     p.Image,
		Category:  p.Category,
		UnitPrice: p.EffectivePrice(),
		Quantity:  1,
	}
}

// Customer holds the contact details collected at checkout.
type Customer struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"required,min=6,max=32"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Order is the immutable result of a checkout.
type Order struct {
	ID        string     `json:"id"`
	StoreName string     `json:"store_name"`
	Customer  Customer   `json:"customer"`
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	PlacedAt  time.Time  `json:"placed_at"`
}
