package stock

import (
	"context"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	VariantID  *id.ID
	LocationID *id.ID
	Type       *MovementType
	Limit      int
	Offset     int
}

// Repository persists the movement ledger and the cached balances.
//
// ApplyDelta is the only write path to balances; implementations must
// make it an atomic upsert so the ledger and the cache cannot diverge
// when both run inside the same transaction.
type Repository interface {
	// CreateMovement appends one immutable ledger row.
	CreateMovement(ctx context.Context, m Movement) error

	// Movements returns ledger rows ordered newest first.
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// MovementsByReference returns all rows linked to one document.
	MovementsByReference(ctx context.Context, refType, refID string) ([]Movement, error)

	// GetBalance returns the cached balance, or a zero-quantity balance
	// when no row exists for the pair.
	GetBalance(ctx context.Context, variantID, locationID id.ID) (Balance, error)

	// GetBalanceForUpdate behaves like GetBalance but takes a row lock
	// (SELECT ... FOR UPDATE). Must run inside a transaction.
	GetBalanceForUpdate(ctx context.Context, variantID, locationID id.ID) (Balance, error)

	// ApplyDelta atomically adds a signed delta to the cached balance,
	// inserting the row if absent.
	ApplyDelta(ctx context.Context, variantID, locationID id.ID, delta types.Quantity) error

	// BalancesByLocation returns all balances at one location.
	BalancesByLocation(ctx context.Context, locationID id.ID) ([]Balance, error)

	// BalancesByVariant returns one variant's balances across locations.
	BalancesByVariant(ctx context.Context, variantID id.ID) ([]Balance, error)

	// BalancesBelowThreshold returns pairs with quantity below threshold.
	BalancesBelowThreshold(ctx context.Context, threshold types.Quantity) ([]Balance, error)
}
