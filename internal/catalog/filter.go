package catalog

import (
	"cmp"
	"slices"
	"strings"

	"storefront-service/internal/domain"
)

// Filter returns the products matching c in the order selected by c.SortBy.
// Sorting is stable: equal keys keep their catalog order. The input slice is
// never modified.
func Filter(products []domain.Product, c domain.Criteria) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if c.Matches(p) {
			out = append(out, p)
		}
	}

	if compare := comparator(c.SortBy); compare != nil {
		slices.SortStableFunc(out, compare)
	}
	return out
}

func comparator(key domain.SortKey) func(a, b domain.Product) int {
	switch key {
	case domain.SortPriceAsc:
		return func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceDesc:
		return func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortNameAsc:
		return func(a, b domain.Product) int { return strings.Compare(a.Title, b.Title) }
	case domain.SortNameDesc:
		return func(a, b domain.Product) int { return strings.Compare(b.Title, a.Title) }
	default:
		return nil
	}
}

// Page returns the 1-based page of products of the given size and the total
// number of pages.
func Page(products []domain.Product, page, size int) ([]domain.Product, int) {
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := 0
	if len(products) > 0 {
		totalPages = (len(products) + size - 1) / size
	}
	if page > totalPages {
		return []domain.Product{}, totalPages
	}
	start := (page - 1) * size
	end := min(start+size, len(products))
	return products[start:end], totalPages
}
