// Package barcodes manages product barcodes, including generation of
// internal SIMBA-prefixed codes for goods without manufacturer barcodes.
package barcodes

import (
	"time"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
)

// Type classifies a barcode.
type Type string

const (
	TypeEAN13    Type = "ean13"
	TypeCode128  Type = "code128"
	TypeInternal Type = "internal"
)

// Valid reports whether t is a known barcode type.
func (t Type) Valid() bool {
	return t == TypeEAN13 || t == TypeCode128 || t == TypeInternal
}

// Barcode links a scannable value to a product variant. At most one
// barcode per variant is primary.
type Barcode struct {
	ID        id.ID     `db:"id" json:"id"`
	Value     string    `db:"value" json:"value"`
	Type      Type      `db:"barcode_type" json:"type"`
	VariantID id.ID     `db:"variant_id" json:"variantId"`
	IsPrimary bool      `db:"is_primary" json:"isPrimary"`
	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CreateRequest registers an existing (manufacturer) barcode.
type CreateRequest struct {
	Value     string `json:"value"`
	Type      Type   `json:"type"`
	VariantID id.ID  `json:"variantId"`
	IsPrimary bool   `json:"isPrimary"`
}

// Validate checks structural invariants of the request.
func (r *CreateRequest) Validate() error {
	if r.Value == "" {
		return apperror.NewValidation("value is required")
	}
	if !r.Type.Valid() {
		return apperror.NewValidation("unknown barcode type: " + string(r.Type))
	}
	if id.IsNil(r.VariantID) {
		return apperror.NewValidation("variantId is required")
	}
	return nil
}
