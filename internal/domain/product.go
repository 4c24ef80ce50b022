package domain

import "strings"

// Product is a read-only catalog entry as served by the store API.
// The json tags follow the external API's product document.
type Product struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Discount    *float64 `json:"discount,omitempty"` // Percentage 0-100
	Image       string   `json:"image"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
}

// EffectivePrice returns the unit price after the product discount, if any.
// Discounts outside 0-100 are ignored.
func (p Product) EffectivePrice() float64 {
	if p.Discount == nil || *p.Discount <= 0 || *p.Discount > 100 {
		return p.Price
	}
	return p.Price * (1 - *p.Discount/100)
}

// SortKey selects the ordering of the derived product view.
type SortKey string

const (
	SortNone      SortKey = ""
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNameAsc   SortKey = "name_asc"
	SortNameDesc  SortKey = "name_desc"
)

// Valid reports whether k is one of the known sort keys.
func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return true
	}
	return false
}

// NoUpperBound as Criteria.MaxPrice leaves the price range open-ended.
const NoUpperBound float64 = -1

// DefaultPageSize is used when criteria carry no positive page size.
const DefaultPageSize = 12

// Criteria is the full set of filters applied to the catalog. Every field
// always holds a defined value so filtering is total over (catalog, criteria).
type Criteria struct {
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Category string  `json:"category"`
	Search   string  `json:"search"`
	SortBy   SortKey `json:"sort_by"`
	PageSize int     `json:"page_size"`
}

// DefaultCriteria matches everything in catalog order.
func DefaultCriteria() Criteria {
	return Criteria{
		MinPrice: 0,
		MaxPrice: NoUpperBound,
		PageSize: DefaultPageSize,
	}
}

// Matches reports whether p passes the price, category and search filters.
func (c Criteria) Matches(p Product) bool {
	if p.Price < c.MinPrice {
		return false
	}
	if c.MaxPrice >= 0 && p.Price > c.MaxPrice {
		return false
	}
	if c.Category != "" && p.Category != c.Category {
		return false
	}
	if q := strings.TrimSpace(c.Search); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// CriteriaPatch is a partial update of Criteria. Nil fields keep their value.
type CriteriaPatch struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Category *string  `json:"category,omitempty"`
	Search   *string  `json:"search,omitempty"`
	SortBy   *SortKey `json:"sort_by,omitempty"`
	PageSize *int     `json:"page_size,omitempty"`
}

// Merge applies the patch on top of c (shallow merge).
func (c Criteria) Merge(p CriteriaPatch) Criteria {
	if p.MinPrice != nil {
		c.MinPrice = *p.MinPrice
	}
	if p.MaxPrice != nil {
		c.MaxPrice = *p.MaxPrice
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Search != nil {
		c.Search = *p.Search
	}
	if p.SortBy != nil {
		c.SortBy = *p.SortBy
	}
	if p.PageSize != nil {
		c.PageSize = *p.PageSize
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}
