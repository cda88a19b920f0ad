// Package sales implements the sale transaction workflow: creating and
// voiding sales, cash closings and day summaries.
package sales

import (
	"fmt"
	"time"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMixed    PaymentMethod = "mixed"
	PaymentCredit   PaymentMethod = "credit"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMixed, PaymentCredit:
		return true
	}
	return false
}

// Status is the lifecycle state of a sale.
// StatusReturned is reserved for partial returns; no current operation
// produces it.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
	StatusReturned  Status = "returned"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusVoided, StatusReturned:
		return true
	}
	return false
}

// PaymentBreakdown splits a mixed payment across tender types.
type PaymentBreakdown struct {
	Cash     types.Money `db:"cash" json:"cash"`
	Card     types.Money `db:"card" json:"card"`
	Transfer types.Money `db:"transfer" json:"transfer"`
}

// Total returns the sum of all tender amounts.
func (b PaymentBreakdown) Total() types.Money {
	return b.Cash.Add(b.Card).Add(b.Transfer)
}

// Item is one sold line. Total is quantity * unitPrice - discount.
type Item struct {
	ID          id.ID          `db:"id" json:"id"`
	SaleID      id.ID          `db:"sale_id" json:"-"`
	VariantID   id.ID          `db:"variant_id" json:"variantId"`
	ProductName string         `db:"product_name" json:"productName"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice   types.Money    `db:"unit_price" json:"unitPrice"`
	Discount    types.Money    `db:"discount" json:"discount"`
	Total       types.Money    `db:"total" json:"total"`
}

// Sale is a completed point-of-sale transaction.
type Sale struct {
	ID               id.ID             `db:"id" json:"id"`
	SaleNo           string            `db:"sale_no" json:"saleNo"`
	LocationID       id.ID             `db:"location_id" json:"locationId"`
	CashierID        string            `db:"cashier_id" json:"cashierId"`
	Items            []Item            `db:"-" json:"items"`
	Subtotal         types.Money       `db:"subtotal" json:"subtotal"`
	Discount         types.Money       `db:"discount" json:"discount"`
	Total            types.Money       `db:"total" json:"total"`
	PaymentMethod    PaymentMethod     `db:"payment_method" json:"paymentMethod"`
	PaymentBreakdown *PaymentBreakdown `db:"-" json:"paymentBreakdown,omitempty"`
	CustomerID       *id.ID            `db:"customer_id" json:"customerId,omitempty"`
	PaidAmount       types.Money       `db:"paid_amount" json:"paidAmount"`
	RemainingDebt    types.Money       `db:"remaining_debt" json:"remainingDebt"`
	Status           Status            `db:"status" json:"status"`
	VoidedBy         string            `db:"voided_by" json:"voidedBy,omitempty"`
	VoidReason       string            `db:"void_reason" json:"voidReason,omitempty"`
	Note             string            `db:"note" json:"note,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// CashClosing is an end-of-day cash reconciliation record.
type CashClosing struct {
	ID               id.ID       `db:"id" json:"id"`
	LocationID       id.ID       `db:"location_id" json:"locationId"`
	UserID           string      `db:"user_id" json:"userId"`
	Date             time.Time   `db:"closing_date" json:"date"`
	ExpectedCash     types.Money `db:"expected_cash" json:"expectedCash"`
	CountedCash      types.Money `db:"counted_cash" json:"countedCash"`
	Difference       types.Money `db:"difference" json:"difference"`
	DifferenceReason string      `db:"difference_reason" json:"differenceReason,omitempty"`
	Note             string      `db:"note" json:"note,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
}

// --- Requests ---

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	VariantID id.ID          `json:"variantId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Discount  types.Money    `json:"discount"`
}

// SaleRequest creates a new sale.
type SaleRequest struct {
	LocationID       id.ID             `json:"locationId"`
	Items            []SaleItemRequest `json:"items"`
	Discount         types.Money       `json:"discount"`
	PaymentMethod    PaymentMethod     `json:"paymentMethod"`
	PaymentBreakdown *PaymentBreakdown `json:"paymentBreakdown,omitempty"`
	CustomerID       *id.ID            `json:"customerId,omitempty"`
	PaidAmount       types.Money       `json:"paidAmount"`
	ManagerApproval  bool              `json:"managerApproval,omitempty"`
	Note             string            `json:"note,omitempty"`
}

// Validate checks structural invariants of the request.
func (r *SaleRequest) Validate() error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("locationId is required")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("sale must contain at least one item")
	}
	for i, item := range r.Items {
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: variantId is required", i))
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: unitPrice must not be negative", i))
		}
		if item.Discount.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: discount must not be negative", i))
		}
	}
	if r.Discount.IsNegative() {
		return apperror.NewValidation("discount must not be negative")
	}
	if !r.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method: " + string(r.PaymentMethod))
	}
	if r.PaymentMethod == PaymentMixed && r.PaymentBreakdown == nil {
		return apperror.NewValidation("paymentBreakdown is required for mixed payments")
	}
	if r.PaymentMethod == PaymentCredit && (r.CustomerID == nil || id.IsNil(*r.CustomerID)) {
		return apperror.NewValidation("customerId is required for credit sales")
	}
	if r.PaidAmount.IsNegative() {
		return apperror.NewValidation("paidAmount must not be negative")
	}
	return nil
}

// CashClosingRequest records an end-of-day cash count.
type CashClosingRequest struct {
	LocationID       id.ID       `json:"locationId"`
	Date             time.Time   `json:"date"`
	ExpectedCash     types.Money `json:"expectedCash"`
	CountedCash      types.Money `json:"countedCash"`
	DifferenceReason string      `json:"differenceReason,omitempty"`
	Note             string      `json:"note,omitempty"`
}

// Validate checks structural invariants of the request. A reason is
// mandatory whenever counted cash differs from expected cash.
func (r *CashClosingRequest) Validate() error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("locationId is required")
	}
	if r.Date.IsZero() {
		return apperror.NewValidation("date is required")
	}
	if !r.CountedCash.Sub(r.ExpectedCash).IsZero() && r.DifferenceReason == "" {
		return apperror.NewValidation("differenceReason is required when counted cash differs from expected")
	}
	return nil
}

// ListFilter narrows sale history queries.
type ListFilter struct {
	LocationID *id.ID
	CashierID  *string
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// ClosingFilter narrows cash closing queries.
type ClosingFilter struct {
	LocationID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// DaySummary aggregates one location's completed sales for one day.
type DaySummary struct {
	Date         time.Time   `json:"date"`
	LocationID   id.ID       `json:"locationId"`
	SaleCount    int         `json:"saleCount"`
	TotalSales   types.Money `json:"totalSales"`
	ExpectedCash types.Money `json:"expectedCash"`
}
