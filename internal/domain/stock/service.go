package stock

import (
	"context"
	"fmt"
	"time"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/sequence"
	"simbapos/internal/core/tx"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/audit"
	"simbapos/pkg/logger"
)

// Config holds stock policy knobs.
type Config struct {
	// AllowNegativeStock disables the non-negative balance check on
	// outbound movements. Off by default.
	AllowNegativeStock bool
}

// Service executes multi-line stock operations. Every operation is
// all-or-nothing: all lines post inside one transaction, and outbound
// availability checks run under row locks taken in that same transaction.
type Service struct {
	repo  Repository
	seq   sequence.Generator
	audit audit.Sink
	txm   tx.Manager
	cfg   Config
}

// NewService creates the stock operations service.
func NewService(repo Repository, seq sequence.Generator, sink audit.Sink, txm tx.Manager, cfg Config) *Service {
	return &Service{
		repo:  repo,
		seq:   seq,
		audit: sink,
		txm:   txm,
		cfg:   cfg,
	}
}

// Receive posts a goods receipt: one PURCHASE_IN movement per line.
// Inbound only, so no availability checks apply.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (*ReceiptResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	receiptNo, err := s.documentNo(ctx, "receipt", "RCP")
	if err != nil {
		return nil, err
	}

	note := req.Note
	if note == "" && req.Supplier != "" {
		note = "Receipt from " + req.Supplier
	}
	if req.DocumentNo != "" {
		note = fmt.Sprintf("%s (doc: %s)", note, req.DocumentNo)
	}

	result := &ReceiptResult{
		ReceiptNo:  receiptNo,
		LocationID: req.LocationID,
		TotalItems: len(req.Items),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			m := NewMovement(item.VariantID, req.LocationID, item.Quantity,
				MovementPurchaseIn, RefTypeReceipt, receiptNo, user.UserID)
			m.CostPrice = item.CostPrice
			m.Note = note

			if err := s.repo.CreateMovement(ctx, m); err != nil {
				return err
			}
			if err := s.repo.ApplyDelta(ctx, item.VariantID, req.LocationID, item.Quantity); err != nil {
				return err
			}

			result.Movements = append(result.Movements, m)
			result.TotalQuantity += item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "goods_receipt", receiptNo, audit.ActionCreate, user.UserID, nil, result, note)

	logger.Info(ctx, "goods receipt posted",
		"receipt_no", receiptNo,
		"location_id", req.LocationID,
		"items", result.TotalItems,
		"quantity", result.TotalQuantity,
	)
	return result, nil
}

// Transfer posts an inter-location transfer: a TRANSFER_OUT and a
// TRANSFER_IN movement per line, paired by a shared transfer group id.
// Availability at the source is checked under row locks.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	transferNo, err := s.documentNo(ctx, "transfer", "TRF")
	if err != nil {
		return nil, err
	}

	result := &TransferResult{
		TransferNo:   transferNo,
		FromLocation: req.FromLocationID,
		ToLocation:   req.ToLocationID,
		TotalItems:   len(req.Items),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			if err := s.checkAvailability(ctx, item.VariantID, req.FromLocationID, item.Quantity); err != nil {
				return err
			}

			groupID := id.New()

			out := NewMovement(item.VariantID, req.FromLocationID, item.Quantity.Neg(),
				MovementTransferOut, RefTypeTransfer, transferNo, user.UserID)
			out.TransferGroupID = &groupID
			out.Note = req.Note

			in := NewMovement(item.VariantID, req.ToLocationID, item.Quantity,
				MovementTransferIn, RefTypeTransfer, transferNo, user.UserID)
			in.TransferGroupID = &groupID
			in.Note = req.Note

			if err := s.repo.CreateMovement(ctx, out); err != nil {
				return err
			}
			if err := s.repo.CreateMovement(ctx, in); err != nil {
				return err
			}
			if err := s.repo.ApplyDelta(ctx, item.VariantID, req.FromLocationID, item.Quantity.Neg()); err != nil {
				return err
			}
			if err := s.repo.ApplyDelta(ctx, item.VariantID, req.ToLocationID, item.Quantity); err != nil {
				return err
			}

			result.OutMovements = append(result.OutMovements, out)
			result.InMovements = append(result.InMovements, in)
			result.TotalQuantity += item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "stock_transfer", transferNo, audit.ActionCreate, user.UserID, nil, result, req.Note)

	logger.Info(ctx, "stock transfer posted",
		"transfer_no", transferNo,
		"from_location_id", req.FromLocationID,
		"to_location_id", req.ToLocationID,
		"items", result.TotalItems,
		"quantity", result.TotalQuantity,
	)
	return result, nil
}

// Adjust posts manual corrections: one signed ADJUSTMENT movement per
// non-zero line. Requires a stock-adjusting role and a reason.
func (s *Service) Adjust(ctx context.Context, req AdjustmentRequest) (*AdjustmentResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if !user.CanAdjustStock() {
		return nil, apperror.NewForbidden("role is not allowed to adjust stock")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adjustmentNo, err := s.documentNo(ctx, "adjustment", "ADJ")
	if err != nil {
		return nil, err
	}

	result := &AdjustmentResult{
		AdjustmentNo: adjustmentNo,
		LocationID:   req.LocationID,
		Reason:       req.Reason,
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			if item.Quantity.IsZero() {
				continue
			}
			if item.Quantity.IsNegative() {
				if err := s.checkAvailability(ctx, item.VariantID, req.LocationID, item.Quantity.Abs()); err != nil {
					return err
				}
			}

			m := NewMovement(item.VariantID, req.LocationID, item.Quantity,
				MovementAdjustment, RefTypeAdjustment, adjustmentNo, user.UserID)
			m.Note = req.Reason

			if err := s.repo.CreateMovement(ctx, m); err != nil {
				return err
			}
			if err := s.repo.ApplyDelta(ctx, item.VariantID, req.LocationID, item.Quantity); err != nil {
				return err
			}

			result.Movements = append(result.Movements, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.TotalItems = len(result.Movements)

	s.recordAudit(ctx, "stock_adjustment", adjustmentNo, audit.ActionCreate, user.UserID, nil, result, req.Reason)

	logger.Info(ctx, "stock adjustment posted",
		"adjustment_no", adjustmentNo,
		"location_id", req.LocationID,
		"lines", result.TotalItems,
		"reason", req.Reason,
	)
	return result, nil
}

// StartStocktake freezes a baseline sheet of current system quantities
// at a location. The sheet is informational; reconciliation happens at
// finalization against the then-current balances.
func (s *Service) StartStocktake(ctx context.Context, locationID id.ID) (*StocktakeSnapshot, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if !user.CanAdjustStock() {
		return nil, apperror.NewForbidden("role is not allowed to run stocktakes")
	}
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("locationId is required")
	}

	stocktakeNo, err := s.documentNo(ctx, "stocktake", "STK")
	if err != nil {
		return nil, err
	}

	balances, err := s.repo.BalancesByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	snapshot := &StocktakeSnapshot{
		StocktakeNo: stocktakeNo,
		LocationID:  locationID,
		StartedAt:   time.Now().UTC(),
	}
	for _, b := range balances {
		snapshot.Lines = append(snapshot.Lines, StocktakeBaseline{
			VariantID:      b.VariantID,
			SystemQuantity: b.Quantity,
		})
	}

	s.recordAudit(ctx, "stocktake", stocktakeNo, audit.ActionStocktakeStart, user.UserID, nil, snapshot, "")

	logger.Info(ctx, "stocktake started",
		"stocktake_no", stocktakeNo,
		"location_id", locationID,
		"lines", len(snapshot.Lines),
	)
	return snapshot, nil
}

// FinalizeStocktake reconciles counted quantities against the current
// balances, re-read under row locks inside the transaction. Only lines
// with a non-zero difference produce ADJUSTMENT movements; the note
// embeds system, counted and difference quantities for audit.
func (s *Service) FinalizeStocktake(ctx context.Context, req StocktakeFinalizeRequest) (*StocktakeResult, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if !user.CanAdjustStock() {
		return nil, apperror.NewForbidden("role is not allowed to run stocktakes")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	stocktakeNo, err := s.documentNo(ctx, "stocktake", "STK")
	if err != nil {
		return nil, err
	}

	result := &StocktakeResult{
		StocktakeNo: stocktakeNo,
		LocationID:  req.LocationID,
		Reason:      req.Reason,
		FinalizedAt: time.Now().UTC(),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			bal, err := s.repo.GetBalanceForUpdate(ctx, item.VariantID, req.LocationID)
			if err != nil {
				return err
			}

			diff := item.CountedQuantity - bal.Quantity
			line := StocktakeLine{
				VariantID:       item.VariantID,
				SystemQuantity:  bal.Quantity,
				CountedQuantity: item.CountedQuantity,
				Difference:      diff,
			}

			if !diff.IsZero() {
				m := NewMovement(item.VariantID, req.LocationID, diff,
					MovementAdjustment, RefTypeStocktake, stocktakeNo, user.UserID)
				m.Note = fmt.Sprintf("Stocktake: %s (system: %d, counted: %d, difference: %d)",
					req.Reason, bal.Quantity, item.CountedQuantity, diff)

				if err := s.repo.CreateMovement(ctx, m); err != nil {
					return err
				}
				if err := s.repo.ApplyDelta(ctx, item.VariantID, req.LocationID, diff); err != nil {
					return err
				}
				line.MovementID = &m.ID
				result.TotalAdjustments++
			}

			result.Lines = append(result.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "stocktake", stocktakeNo, audit.ActionStocktakeFinal, user.UserID, nil, result, req.Reason)

	logger.Info(ctx, "stocktake finalized",
		"stocktake_no", stocktakeNo,
		"location_id", req.LocationID,
		"lines", len(result.Lines),
		"adjustments", result.TotalAdjustments,
	)
	return result, nil
}

// CreateMovement posts a single ledger row on behalf of another
// workflow. Joins the caller's transaction when one is in context.
// Outbound quantities are availability-checked under a row lock.
func (s *Service) CreateMovement(ctx context.Context, req MovementRequest) (*Movement, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m := NewMovement(req.VariantID, req.LocationID, req.Quantity,
		req.Type, req.RefType, req.RefID, user.UserID)
	m.Note = req.Note

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if req.Quantity.IsNegative() {
			if err := s.checkAvailability(ctx, req.VariantID, req.LocationID, req.Quantity.Abs()); err != nil {
				return err
			}
		}
		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return err
		}
		return s.repo.ApplyDelta(ctx, req.VariantID, req.LocationID, req.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// --- Queries ---

// Quantity returns the cached on-hand quantity for a pair. Missing
// balance rows read as zero.
func (s *Service) Quantity(ctx context.Context, variantID, locationID id.ID) (types.Quantity, error) {
	bal, err := s.repo.GetBalance(ctx, variantID, locationID)
	if err != nil {
		return 0, err
	}
	return bal.Quantity, nil
}

// StockByLocation lists all balances at a location.
func (s *Service) StockByLocation(ctx context.Context, locationID id.ID) ([]Balance, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("locationId is required")
	}
	return s.repo.BalancesByLocation(ctx, locationID)
}

// StockByVariant lists one variant's balances across locations.
func (s *Service) StockByVariant(ctx context.Context, variantID id.ID) ([]Balance, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewValidation("variantId is required")
	}
	return s.repo.BalancesByVariant(ctx, variantID)
}

// LowStock lists pairs with on-hand quantity below threshold.
func (s *Service) LowStock(ctx context.Context, threshold types.Quantity) ([]Balance, error) {
	if threshold.IsNegative() {
		return nil, apperror.NewValidation("threshold must not be negative")
	}
	return s.repo.BalancesBelowThreshold(ctx, threshold)
}

// Movements returns filtered movement history, newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.Movements(ctx, filter)
}

// MovementsByReference returns all movements linked to one document.
func (s *Service) MovementsByReference(ctx context.Context, refType, refID string) ([]Movement, error) {
	if refType == "" || refID == "" {
		return nil, apperror.NewValidation("refType and refId are required")
	}
	return s.repo.MovementsByReference(ctx, refType, refID)
}

// --- Internals ---

// checkAvailability enforces the non-negative stock policy. The balance
// is read FOR UPDATE so the row stays locked until the surrounding
// transaction commits.
func (s *Service) checkAvailability(ctx context.Context, variantID, locationID id.ID, required types.Quantity) error {
	if s.cfg.AllowNegativeStock {
		return nil
	}
	bal, err := s.repo.GetBalanceForUpdate(ctx, variantID, locationID)
	if err != nil {
		return err
	}
	if bal.Quantity < required {
		return apperror.NewInsufficientStock(variantID.String(), required.Int64(), bal.Quantity.Int64())
	}
	return nil
}

// documentNo allocates the next day-scoped document number,
// e.g. RCP-20260829-00001. The counter runs outside the business
// transaction, so a failed posting leaves a gap, never a duplicate.
func (s *Service) documentNo(ctx context.Context, counter, prefix string) (string, error) {
	day := time.Now().UTC().Format("20060102")
	n, err := s.seq.Next(ctx, sequence.DayCounter(counter, day))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%05d", prefix, day, n), nil
}

func (s *Service) recordAudit(ctx context.Context, entityType, entityID string, action audit.Action, actorID string, oldVal, newVal any, note string) {
	err := s.audit.Record(ctx, audit.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		OldValue:   oldVal,
		NewValue:   newVal,
		Note:       note,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", string(action),
			"error", err,
		)
	}
}
