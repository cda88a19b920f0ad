// Package catalog provides the read-only product catalog port.
// The core treats variant and product identity as opaque foreign keys
// and never mutates catalog data.
package catalog

import (
	"context"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// Variant is a sellable product variant as seen by the core.
type Variant struct {
	ID        id.ID       `db:"id" json:"id"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	Name      string      `db:"name" json:"name"`
	SKU       string      `db:"sku" json:"sku"`
	CostPrice types.Money `db:"cost_price" json:"costPrice"`
	SalePrice types.Money `db:"sale_price" json:"salePrice"`
	Active    bool        `db:"active" json:"active"`
}

// Lookup resolves variants by id. Implementations return
// apperror.NewNotFound("variant", id) for unknown ids.
type Lookup interface {
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)
}

// MockLookup is a test implementation of Lookup.
type MockLookup struct {
	GetVariantFunc func(ctx context.Context, variantID id.ID) (*Variant, error)
}

// GetVariant implements Lookup.
func (m *MockLookup) GetVariant(ctx context.Context, variantID id.ID) (*Variant, error) {
	if m.GetVariantFunc != nil {
		return m.GetVariantFunc(ctx, variantID)
	}
	return &Variant{ID: variantID, Name: "variant", Active: true}, nil
}

var _ Lookup = (*MockLookup)(nil)
