package storeapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"storefront-service/internal/domain"
	"storefront-service/internal/numfmt"
)

// wireProduct accepts the loosely typed product documents the API serves:
// numbers may arrive as JSON numbers or as formatted strings.
type wireProduct struct {
	ID          any      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       any      `json:"price"`
	Category    string   `json:"category"`
	Discount    any      `json:"discount"`
	Image       string   `json:"image"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
}

var (
	idOptions    = numfmt.Options{DecimalPlaces: 0, DecimalSeparator: ".", ThousandsSeparator: ","}
	priceOptions = numfmt.DefaultOptions()
)

func (w wireProduct) toDomain() domain.Product {
	p := domain.Product{
		ID:          int64(numfmt.ParseNumber(w.ID, idOptions)),
		Title:       w.Title,
		Description: w.Description,
		Price:       numfmt.ParseNumber(w.Price, priceOptions),
		Category:    w.Category,
		Image:       w.Image,
		Sizes:       w.Sizes,
		Colors:      w.Colors,
	}
	if w.Discount != nil {
		d := numfmt.ParseNumber(w.Discount, priceOptions)
		if d > 0 && d <= 100 {
			p.Discount = &d
		}
	}
	return p
}

func toDomain(in []wireProduct) []domain.Product {
	out := make([]domain.Product, len(in))
	for i, w := range in {
		out[i] = w.toDomain()
	}
	return out
}

// decodeProducts reads {"products": [...]}, {"data": [...]} or a bare array.
func decodeProducts(data []byte) ([]domain.Product, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.Product{}, nil
	}

	if data[0] == '[' {
		var list []wireProduct
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("storeapi: decode products failed: %w", err)
		}
		return toDomain(list), nil
	}

	var envelope struct {
		Products []wireProduct `json:"products"`
		Data     []wireProduct `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("storeapi: decode products failed: %w", err)
	}
	if envelope.Products != nil {
		return toDomain(envelope.Products), nil
	}
	return toDomain(envelope.Data), nil
}

// decodeProduct reads a single product, optionally wrapped in "data" or
// "product".
func decodeProduct(data []byte) (domain.Product, error) {
	var envelope struct {
		Data    *wireProduct `json:"data"`
		Product *wireProduct `json:"product"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.Product{}, fmt.Errorf("storeapi: decode product failed: %w", err)
	}
	switch {
	case envelope.Data != nil:
		return envelope.Data.toDomain(), nil
	case envelope.Product != nil:
		return envelope.Product.toDomain(), nil
	}

	var w wireProduct
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Product{}, fmt.Errorf("storeapi: decode product failed: %w", err)
	}
	return w.toDomain(), nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := string(bytes.TrimSpace(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
