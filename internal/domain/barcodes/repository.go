package barcodes

import (
	"context"

	"simbapos/internal/core/id"
)

// Repository persists barcodes. Value carries a unique constraint;
// implementations map its violation to apperror.NewDuplicate so the
// generation retry loop can detect collisions.
type Repository interface {
	// Create inserts a barcode, apperror duplicate error on value clash.
	Create(ctx context.Context, b *Barcode) error

	// GetByID loads one barcode, apperror.NewNotFound when absent.
	GetByID(ctx context.Context, barcodeID id.ID) (*Barcode, error)

	// GetByValue loads one barcode by scanned value, nil when absent.
	GetByValue(ctx context.Context, value string) (*Barcode, error)

	// ListByVariant returns all barcodes of a variant.
	ListByVariant(ctx context.Context, variantID id.ID) ([]Barcode, error)

	// HasInternal reports whether the variant already owns an internal code.
	HasInternal(ctx context.Context, variantID id.ID) (bool, error)

	// ClearPrimary unsets the primary flag on all of a variant's barcodes.
	ClearPrimary(ctx context.Context, variantID id.ID) error

	// SetPrimary sets the primary flag on one barcode.
	SetPrimary(ctx context.Context, barcodeID id.ID) error

	// Delete removes one barcode.
	Delete(ctx context.Context, barcodeID id.ID) error
}
