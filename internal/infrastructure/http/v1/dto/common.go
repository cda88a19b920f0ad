// Package dto defines HTTP request and response shapes that differ
// from the domain types. Most operation requests bind directly to the
// domain request structs; this package holds the rest.
package dto

import (
	"github.com/shopspring/decimal"
)

// IDResponse is the standard created-entity response.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is the standard acknowledgment response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// VoidSaleRequest carries the mandatory void reason.
type VoidSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PaymentRequest records a party payment against the ledger.
type PaymentRequest struct {
	PartyType string          `json:"partyType" binding:"required"`
	PartyID   string          `json:"partyId" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Note      string          `json:"note"`
}

// StocktakeStartRequest opens a counting session at a location.
type StocktakeStartRequest struct {
	LocationID string `json:"locationId" binding:"required"`
}
