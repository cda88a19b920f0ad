// Package ledger implements the append-only party debt ledger.
// Entries are never mutated; balances are sums over entries.
package ledger

import (
	"time"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// PartyType identifies which counterparty book an entry belongs to.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
)

// Valid reports whether t is a known party type.
func (t PartyType) Valid() bool {
	return t == PartyCustomer || t == PartySupplier
}

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntrySaleOnCredit     EntryType = "sale_on_credit"
	EntryPayment          EntryType = "payment"
	EntryPurchaseOnCredit EntryType = "purchase_on_credit"
	EntryRefund           EntryType = "refund"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntrySaleOnCredit, EntryPayment, EntryPurchaseOnCredit, EntryRefund:
		return true
	}
	return false
}

// DefaultCurrency is applied when an entry carries no currency.
const DefaultCurrency = "AZN"

// Entry is one immutable ledger row.
//
// Sign conventions: positive amounts increase what the party owes
// (customer book) or what we owe (supplier book). Customer payments are
// recorded negative, supplier payments positive.
type Entry struct {
	ID        id.ID       `db:"id" json:"id"`
	PartyType PartyType   `db:"party_type" json:"partyType"`
	PartyID   id.ID       `db:"party_id" json:"partyId"`
	Amount    types.Money `db:"amount" json:"amount"`
	Currency  string      `db:"currency" json:"currency"`
	Type      EntryType   `db:"entry_type" json:"type"`
	RefType   string      `db:"ref_type" json:"refType,omitempty"`
	RefID     string      `db:"ref_id" json:"refId,omitempty"`
	Note      string      `db:"note" json:"note,omitempty"`
	CreatedBy string      `db:"created_by" json:"createdBy"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// Validate checks required fields of a new entry.
func (e *Entry) Validate() error {
	if !e.PartyType.Valid() {
		return apperror.NewValidation("unknown party type: " + string(e.PartyType))
	}
	if id.IsNil(e.PartyID) {
		return apperror.NewValidation("partyId is required")
	}
	if !e.Type.Valid() {
		return apperror.NewValidation("unknown entry type: " + string(e.Type))
	}
	if e.Amount.IsZero() {
		return apperror.NewValidation("amount must not be zero")
	}
	return nil
}

// PartyBalance is an aggregated outstanding balance for one party.
type PartyBalance struct {
	PartyType PartyType   `db:"party_type" json:"partyType"`
	PartyID   id.ID       `db:"party_id" json:"partyId"`
	Balance   types.Money `db:"balance" json:"balance"`
}

// EntryFilter narrows ledger history queries.
type EntryFilter struct {
	PartyType *PartyType
	PartyID   *id.ID
	Type      *EntryType
	Limit     int
	Offset    int
}
