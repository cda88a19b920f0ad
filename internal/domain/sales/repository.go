package sales

import (
	"context"
	"time"

	"simbapos/internal/core/id"
)

// Repository persists sales with their items.
type Repository interface {
	// Create inserts the sale header and all its items.
	Create(ctx context.Context, sale *Sale) error

	// GetByID loads a sale with items, apperror.NewNotFound when absent.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetBySaleNo loads a sale with items by its business number.
	GetBySaleNo(ctx context.Context, saleNo string) (*Sale, error)

	// MarkVoided updates status, voidedBy and voidReason of a sale.
	MarkVoided(ctx context.Context, sale *Sale) error

	// List returns sale headers ordered newest first.
	List(ctx context.Context, filter ListFilter) ([]Sale, error)

	// ListCompletedBetween returns completed sales of one location in
	// the half-open interval [from, to).
	ListCompletedBetween(ctx context.Context, locationID id.ID, from, to time.Time) ([]Sale, error)
}

// ClosingRepository persists cash closings.
type ClosingRepository interface {
	// Create inserts a closing record.
	Create(ctx context.Context, closing *CashClosing) error

	// List returns closings ordered newest first.
	List(ctx context.Context, filter ClosingFilter) ([]CashClosing, error)
}
