// Package stock implements the stock movement ledger, cached balances
// and the multi-line stock operations (receipts, transfers, adjustments,
// stocktakes).
package stock

import (
	"fmt"
	"time"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementPurchaseIn  MovementType = "PURCHASE_IN"
	MovementSaleOut     MovementType = "SALE_OUT"
	MovementTransferOut MovementType = "TRANSFER_OUT"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementReturnIn    MovementType = "RETURN_IN"
	MovementAdjustment  MovementType = "ADJUSTMENT"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchaseIn, MovementSaleOut, MovementTransferOut,
		MovementTransferIn, MovementReturnIn, MovementAdjustment:
		return true
	}
	return false
}

// Reference types linking movements to their originating documents.
const (
	RefTypeReceipt    = "receipt"
	RefTypeTransfer   = "transfer"
	RefTypeAdjustment = "adjustment"
	RefTypeStocktake  = "stocktake"
	RefTypeSale       = "sale"
	RefTypeSaleVoid   = "sale_void"
)

// Movement is one immutable row of the stock movement ledger.
// Quantity is a signed delta: positive for inbound, negative for outbound.
// Movements are never updated or deleted; reversals are new rows.
type Movement struct {
	ID              id.ID           `db:"id" json:"id"`
	VariantID       id.ID           `db:"variant_id" json:"variantId"`
	LocationID      id.ID           `db:"location_id" json:"locationId"`
	Quantity        types.Quantity  `db:"quantity" json:"quantity"`
	Type            MovementType    `db:"movement_type" json:"type"`
	RefType         string          `db:"ref_type" json:"refType"`
	RefID           string          `db:"ref_id" json:"refId"`
	TransferGroupID *id.ID          `db:"transfer_group_id" json:"transferGroupId,omitempty"`
	CostPrice       *types.Money    `db:"cost_price" json:"costPrice,omitempty"`
	Note            string          `db:"note" json:"note,omitempty"`
	CreatedBy       string          `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// NewMovement builds a ledger row with a fresh id and timestamp.
func NewMovement(variantID, locationID id.ID, qty types.Quantity, mt MovementType, refType, refID, createdBy string) Movement {
	return Movement{
		ID:         id.New(),
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   qty,
		Type:       mt,
		RefType:    refType,
		RefID:      refID,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
}

// Balance is the cached on-hand quantity for one (variant, location) pair.
// It is derived state: the movement ledger is the source of truth and the
// balance must always equal the sum of its movements.
type Balance struct {
	VariantID      id.ID          `db:"variant_id" json:"variantId"`
	LocationID     id.ID          `db:"location_id" json:"locationId"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	LastMovementAt time.Time      `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// --- Operation requests ---

// ReceiveItem is one line of a goods receipt.
type ReceiveItem struct {
	VariantID id.ID          `json:"variantId"`
	Quantity  types.Quantity `json:"quantity"`
	CostPrice *types.Money   `json:"costPrice,omitempty"`
}

// ReceiveRequest records inbound goods from a supplier.
type ReceiveRequest struct {
	LocationID id.ID         `json:"locationId"`
	Supplier   string        `json:"supplier,omitempty"`
	DocumentNo string        `json:"documentNo,omitempty"`
	Note       string        `json:"note,omitempty"`
	Items      []ReceiveItem `json:"items"`
}

// Validate checks structural invariants of the request.
func (r *ReceiveRequest) Validate() error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("locationId is required")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("receipt must contain at least one item")
	}
	for i, item := range r.Items {
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: variantId is required", i))
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
		if item.CostPrice != nil && item.CostPrice.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: costPrice must not be negative", i))
		}
	}
	return nil
}

// TransferItem is one line of an inter-location transfer.
type TransferItem struct {
	VariantID id.ID          `json:"variantId"`
	Quantity  types.Quantity `json:"quantity"`
}

// TransferRequest moves goods between two locations.
type TransferRequest struct {
	FromLocationID id.ID          `json:"fromLocationId"`
	ToLocationID   id.ID          `json:"toLocationId"`
	Note           string         `json:"note,omitempty"`
	Items          []TransferItem `json:"items"`
}

// Validate checks structural invariants of the request.
func (r *TransferRequest) Validate() error {
	if id.IsNil(r.FromLocationID) || id.IsNil(r.ToLocationID) {
		return apperror.NewValidation("fromLocationId and toLocationId are required")
	}
	if r.FromLocationID == r.ToLocationID {
		return apperror.NewBusinessRule(apperror.CodeSameLocationTransfer,
			"source and destination locations must differ")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("transfer must contain at least one item")
	}
	for i, item := range r.Items {
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: variantId is required", i))
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
	}
	return nil
}

// AdjustmentItem is one signed correction line.
type AdjustmentItem struct {
	VariantID id.ID          `json:"variantId"`
	Quantity  types.Quantity `json:"quantity"` // signed delta
}

// AdjustmentRequest applies manual corrections with a mandatory reason.
type AdjustmentRequest struct {
	LocationID id.ID            `json:"locationId"`
	Reason     string           `json:"reason"`
	Items      []AdjustmentItem `json:"items"`
}

// Validate checks structural invariants of the request.
// Zero-quantity lines are permitted and skipped during execution.
func (r *AdjustmentRequest) Validate() error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("locationId is required")
	}
	if r.Reason == "" {
		return apperror.NewValidation("reason is required for adjustments")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("adjustment must contain at least one item")
	}
	for i, item := range r.Items {
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: variantId is required", i))
		}
	}
	return nil
}

// StocktakeCount is one counted line of a stocktake.
type StocktakeCount struct {
	VariantID       id.ID          `json:"variantId"`
	CountedQuantity types.Quantity `json:"countedQuantity"`
}

// StocktakeFinalizeRequest reconciles counted quantities against the
// system balances at finalization time.
type StocktakeFinalizeRequest struct {
	LocationID id.ID            `json:"locationId"`
	Reason     string           `json:"reason"`
	Items      []StocktakeCount `json:"items"`
}

// Validate checks structural invariants of the request.
func (r *StocktakeFinalizeRequest) Validate() error {
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("locationId is required")
	}
	if r.Reason == "" {
		return apperror.NewValidation("reason is required for stocktake finalization")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("stocktake must contain at least one counted item")
	}
	for i, item := range r.Items {
		if id.IsNil(item.VariantID) {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: variantId is required", i))
		}
		if item.CountedQuantity.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: countedQuantity must not be negative", i))
		}
	}
	return nil
}

// MovementRequest creates a single ledger row on behalf of another
// workflow (sales, returns). The quantity is signed.
type MovementRequest struct {
	VariantID  id.ID
	LocationID id.ID
	Quantity   types.Quantity
	Type       MovementType
	RefType    string
	RefID      string
	Note       string
}

// Validate checks structural invariants of the request.
func (r *MovementRequest) Validate() error {
	if id.IsNil(r.VariantID) || id.IsNil(r.LocationID) {
		return apperror.NewValidation("variantId and locationId are required")
	}
	if r.Quantity.IsZero() {
		return apperror.NewValidation("quantity must not be zero")
	}
	if !r.Type.Valid() {
		return apperror.NewValidation("unknown movement type: " + string(r.Type))
	}
	return nil
}

// --- Operation results ---

// ReceiptResult summarizes a posted goods receipt.
type ReceiptResult struct {
	ReceiptNo     string         `json:"receiptNo"`
	LocationID    id.ID          `json:"locationId"`
	Movements     []Movement     `json:"movements"`
	TotalItems    int            `json:"totalItems"`
	TotalQuantity types.Quantity `json:"totalQuantity"`
}

// TransferResult summarizes a posted transfer.
type TransferResult struct {
	TransferNo    string         `json:"transferNo"`
	FromLocation  id.ID          `json:"fromLocationId"`
	ToLocation    id.ID          `json:"toLocationId"`
	OutMovements  []Movement     `json:"outMovements"`
	InMovements   []Movement     `json:"inMovements"`
	TotalItems    int            `json:"totalItems"`
	TotalQuantity types.Quantity `json:"totalQuantity"`
}

// AdjustmentResult summarizes a posted adjustment.
type AdjustmentResult struct {
	AdjustmentNo string     `json:"adjustmentNo"`
	LocationID   id.ID      `json:"locationId"`
	Reason       string     `json:"reason"`
	Movements    []Movement `json:"movements"`
	TotalItems   int        `json:"totalItems"`
}

// StocktakeBaseline is one frozen system quantity at stocktake start.
type StocktakeBaseline struct {
	VariantID      id.ID          `json:"variantId"`
	SystemQuantity types.Quantity `json:"systemQuantity"`
}

// StocktakeSnapshot is the baseline sheet handed to the counting staff.
type StocktakeSnapshot struct {
	StocktakeNo string              `json:"stocktakeNo"`
	LocationID  id.ID               `json:"locationId"`
	Lines       []StocktakeBaseline `json:"lines"`
	StartedAt   time.Time           `json:"startedAt"`
}

// StocktakeLine is the reconciliation outcome for one counted variant.
// MovementID is nil when the count matched the system quantity.
type StocktakeLine struct {
	VariantID       id.ID          `json:"variantId"`
	SystemQuantity  types.Quantity `json:"systemQuantity"`
	CountedQuantity types.Quantity `json:"countedQuantity"`
	Difference      types.Quantity `json:"difference"`
	MovementID      *id.ID         `json:"movementId,omitempty"`
}

// StocktakeResult summarizes a finalized stocktake.
type StocktakeResult struct {
	StocktakeNo      string          `json:"stocktakeNo"`
	LocationID       id.ID           `json:"locationId"`
	Reason           string          `json:"reason"`
	Lines            []StocktakeLine `json:"lines"`
	TotalAdjustments int             `json:"totalAdjustments"`
	FinalizedAt      time.Time       `json:"finalizedAt"`
}
