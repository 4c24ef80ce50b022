// Package checkout turns a cart into an order message addressed to the store
// owner's messaging number. There is no payment step.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"storefront-service/internal/domain"
	"storefront-service/internal/events"
	"storefront-service/internal/numfmt"
)

const deepLinkBase = "https://wa.me/"

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrNoContactPhone  = errors.New("checkout: store has no contact phone")
	ErrInvalidCustomer = errors.New("checkout: invalid customer details")
)

// Cart is the part of the session cart checkout needs. Drain must take the
// lines and their totals and empty the cart in one step.
type Cart interface {
	TotalItemCount() int
	Drain(ctx context.Context) (items []domain.CartItem, count int, total float64)
}

// StoreInfo provides the tenant configuration.
type StoreInfo interface {
	Get() domain.StoreConfig
}

type Config struct {
	Locale   string // used when the store config has none
	Currency string
}

// Result is what the client needs to hand the order over.
type Result struct {
	Order    domain.Order `json:"order"`
	Message  string       `json:"message"`
	DeepLink string       `json:"deep_link"`
}

type Service struct {
	store     StoreInfo
	publisher events.Publisher
	cfg       Config
	validate  *validator.Validate
	now       func() time.Time
	logger    *slog.Logger
}

func New(store StoreInfo, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger,
	}
}

// Checkout places the cart's contents as an order. The cart is emptied only
// once the order can be placed; a failed event publication is logged and does
// not fail the order.
func (s *Service) Checkout(ctx context.Context, c Cart, customer domain.Customer) (Result, error) {
	if err := s.validate.Struct(customer); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidCustomer, err)
	}
	if c.TotalItemCount() == 0 {
		return Result{}, ErrEmptyCart
	}

	storeCfg := s.store.Get()
	phone := Digits(storeCfg.Footer.Contact.Phone)
	if phone == "" {
		return Result{}, ErrNoContactPhone
	}

	items, count, total := c.Drain(ctx)
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}

	currency := storeCfg.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	order := domain.Order{
		ID:        uuid.NewString(),
		StoreName: storeCfg.StoreName,
		Customer:  customer,
		Items:     items,
		ItemCount: count,
		Total:     total,
		Currency:  currency,
		PlacedAt:  s.now().UTC(),
	}

	opts := s.numberOptions(storeCfg.Locale)
	msg := ComposeMessage(order, opts)

	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.Warn("failed to publish order event", "order_id", order.ID, "error", err)
	}

	s.logger.Info("order placed", "order_id", order.ID, "items", order.ItemCount, "total", order.Total)
	return Result{Order: order, Message: msg, DeepLink: DeepLink(phone, msg)}, nil
}

func (s *Service) numberOptions(locale string) numfmt.Options {
	if locale == "" {
		locale = s.cfg.Locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return numfmt.DefaultOptions()
	}
	return numfmt.LocaleOptions(tag)
}

// ComposeMessage renders the order as the plain-text message sent to the store.
func ComposeMessage(o domain.Order, opts numfmt.Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order for %s\n", o.StoreName)
	fmt.Fprintf(&b, "Order: %s\n\n", shortID(o.ID))

	fmt.Fprintf(&b, "Name: %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "Phone: %s\n", o.Customer.Phone)
	if o.Customer.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", o.Customer.Email)
	}
	if o.Customer.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", o.Customer.Address)
	}

	b.WriteString("\nItems:\n")
	for _, it := range o.Items {
		line := numfmt.ParseNumber(it.UnitPrice*float64(it.Quantity), opts)
		fmt.Fprintf(&b, "- %d x %s @ %s = %s\n",
			it.Quantity, it.Title, numfmt.FormatNumber(it.UnitPrice, opts), numfmt.FormatNumber(line, opts))
	}

	fmt.Fprintf(&b, "\nTotal items: %d\n", o.ItemCount)
	fmt.Fprintf(&b, "Total: %s %s", o.Currency, numfmt.FormatNumber(o.Total, opts))
	if o.Customer.Notes != "" {
		fmt.Fprintf(&b, "\n\nNotes: %s", o.Customer.Notes)
	}
	return b.String()
}

// DeepLink builds the messaging deep link for phone with text pre-filled.
// Spaces are encoded as %20.
func DeepLink(phone, text string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return deepLinkBase + Digits(phone) + "?text=" + encoded
}

// Digits strips everything but ASCII digits from a phone number.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
