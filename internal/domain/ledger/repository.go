package ledger

import (
	"context"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// Repository persists ledger entries.
// Entries are append-only: no update or delete methods exist.
type Repository interface {
	// Create appends one entry.
	Create(ctx context.Context, e Entry) error

	// SumByParty returns the signed sum of all entries for a party,
	// zero when the party has no entries.
	SumByParty(ctx context.Context, partyType PartyType, partyID id.ID) (types.Money, error)

	// List returns entries ordered newest first.
	List(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// TopDebtors returns customers with the largest positive balances.
	TopDebtors(ctx context.Context, limit int) ([]PartyBalance, error)
}
