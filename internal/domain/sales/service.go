package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/sequence"
	"simbapos/internal/core/tx"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/audit"
	"simbapos/internal/domain/catalog"
	"simbapos/internal/domain/ledger"
	"simbapos/internal/domain/stock"
	"simbapos/pkg/logger"
)

// Discount caps in percent of the gross subtotal. Roles that can
// approve discounts get the higher cap; ManagerApproval on the request
// lifts the cap entirely.
const (
	maxDiscountPrivileged = 50.0
	maxDiscountDefault    = 20.0
)

// Service runs the sale transaction workflow. A sale posts its header,
// items, stock movements and optional credit ledger entry inside one
// transaction: either the whole sale exists or none of it does.
type Service struct {
	repo     Repository
	closings ClosingRepository
	stock    *stock.Service
	ledger   *ledger.Service
	catalog  catalog.Lookup
	seq      sequence.Generator
	audit    audit.Sink
	txm      tx.Manager
}

// NewService creates the sales service.
func NewService(
	repo Repository,
	closings ClosingRepository,
	stockSvc *stock.Service,
	ledgerSvc *ledger.Service,
	catalogLookup catalog.Lookup,
	seq sequence.Generator,
	sink audit.Sink,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:     repo,
		closings: closings,
		stock:    stockSvc,
		ledger:   ledgerSvc,
		catalog:  catalogLookup,
		seq:      seq,
		audit:    sink,
		txm:      txm,
	}
}

// CreateSale validates the request, enforces the discount policy,
// allocates the day-scoped sale number and posts the sale atomically.
func (s *Service) CreateSale(ctx context.Context, req SaleRequest) (*Sale, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Price the lines against the catalog.
	gross := types.Zero()
	lineDiscounts := types.Zero()
	items := make([]Item, 0, len(req.Items))
	for i, line := range req.Items {
		variant, err := s.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		if !variant.Active {
			return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
				fmt.Sprintf("variant %s is not active", variant.SKU))
		}

		lineGross := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity.Int64()))
		lineTotal := lineGross.Sub(line.Discount)
		if lineTotal.IsNegative() {
			return nil, apperror.NewValidation(fmt.Sprintf("items[%d]: discount exceeds line amount", i))
		}

		gross = gross.Add(lineGross)
		lineDiscounts = lineDiscounts.Add(line.Discount)
		items = append(items, Item{
			ID:          id.New(),
			VariantID:   line.VariantID,
			ProductName: variant.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.Discount,
			Total:       lineTotal,
		})
	}

	subtotal := gross.Sub(lineDiscounts)
	total := subtotal.Sub(req.Discount)
	if total.IsNegative() {
		return nil, apperror.NewValidation("discount exceeds sale subtotal")
	}

	if err := s.checkDiscountPolicy(user, req, gross, lineDiscounts); err != nil {
		return nil, err
	}

	paid, remaining, err := settle(req, total)
	if err != nil {
		return nil, err
	}

	saleNo, err := s.nextSaleNo(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sale := &Sale{
		ID:               id.New(),
		SaleNo:           saleNo,
		LocationID:       req.LocationID,
		CashierID:        user.UserID,
		Items:            items,
		Subtotal:         subtotal,
		Discount:         req.Discount,
		Total:            total,
		PaymentMethod:    req.PaymentMethod,
		PaymentBreakdown: req.PaymentBreakdown,
		CustomerID:       req.CustomerID,
		PaidAmount:       paid,
		RemainingDebt:    remaining,
		Status:           StatusCompleted,
		Note:             req.Note,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sale); err != nil {
			return err
		}
		for _, item := range sale.Items {
			_, err := s.stock.CreateMovement(ctx, stock.MovementRequest{
				VariantID:  item.VariantID,
				LocationID: sale.LocationID,
				Quantity:   item.Quantity.Neg(),
				Type:       stock.MovementSaleOut,
				RefType:    stock.RefTypeSale,
				RefID:      sale.ID.String(),
				Note:       "Sale " + saleNo,
			})
			if err != nil {
				return err
			}
		}
		if sale.CustomerID != nil && sale.RemainingDebt.IsPositive() {
			_, err := s.ledger.Append(ctx, ledger.Entry{
				PartyType: ledger.PartyCustomer,
				PartyID:   *sale.CustomerID,
				Amount:    sale.RemainingDebt,
				Type:      ledger.EntrySaleOnCredit,
				RefType:   "sale",
				RefID:     sale.ID.String(),
				Note:      saleNo,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "sale", sale.ID.String(), audit.ActionCreate, user.UserID, nil, sale, saleNo)

	logger.Info(ctx, "sale created",
		"sale_no", saleNo,
		"location_id", sale.LocationID,
		"total", sale.Total,
		"payment_method", string(sale.PaymentMethod),
		"items", len(sale.Items),
	)
	return sale, nil
}

// VoidSale reverses a completed sale: status flips to voided, stock
// returns via RETURN_IN movements and any credit debt is cancelled.
// Requires a discount-approving role and a reason.
func (s *Service) VoidSale(ctx context.Context, saleID id.ID, reason string) (*Sale, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if !user.CanApproveDiscount() {
		return nil, apperror.NewForbidden("role is not allowed to void sales")
	}
	if reason == "" {
		return nil, apperror.NewValidation("reason is required to void a sale")
	}

	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == StatusVoided {
		return nil, apperror.NewBusinessRule(apperror.CodeSaleAlreadyVoided,
			"sale "+sale.SaleNo+" is already voided")
	}
	if sale.Status != StatusCompleted {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"only completed sales can be voided")
	}

	old := *sale

	sale.Status = StatusVoided
	sale.VoidedBy = user.UserID
	sale.VoidReason = reason
	sale.UpdatedAt = time.Now().UTC()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.MarkVoided(ctx, sale); err != nil {
			return err
		}
		for _, item := range sale.Items {
			_, err := s.stock.CreateMovement(ctx, stock.MovementRequest{
				VariantID:  item.VariantID,
				LocationID: sale.LocationID,
				Quantity:   item.Quantity,
				Type:       stock.MovementReturnIn,
				RefType:    stock.RefTypeSaleVoid,
				RefID:      sale.ID.String(),
				Note:       fmt.Sprintf("Void %s: %s", sale.SaleNo, reason),
			})
			if err != nil {
				return err
			}
		}
		if sale.CustomerID != nil && sale.RemainingDebt.IsPositive() {
			_, err := s.ledger.Append(ctx, ledger.Entry{
				PartyType: ledger.PartyCustomer,
				PartyID:   *sale.CustomerID,
				Amount:    sale.RemainingDebt.Neg(),
				Type:      ledger.EntryPayment,
				RefType:   "sale_void",
				RefID:     sale.ID.String(),
				Note:      "Void " + sale.SaleNo,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "sale", sale.ID.String(), audit.ActionVoid, user.UserID, &old, sale, reason)

	logger.Info(ctx, "sale voided",
		"sale_no", sale.SaleNo,
		"voided_by", user.UserID,
		"reason", reason,
	)
	return sale, nil
}

// GetSale loads one sale with its items.
func (s *Service) GetSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// GetSaleByNo loads one sale by its business number.
func (s *Service) GetSaleByNo(ctx context.Context, saleNo string) (*Sale, error) {
	if saleNo == "" {
		return nil, apperror.NewValidation("saleNo is required")
	}
	return s.repo.GetBySaleNo(ctx, saleNo)
}

// ListSales returns filtered sale history.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.List(ctx, filter)
}

// CreateCashClosing records an end-of-day cash count against the
// expected amount.
func (s *Service) CreateCashClosing(ctx context.Context, req CashClosingRequest) (*CashClosing, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	closing := &CashClosing{
		ID:               id.New(),
		LocationID:       req.LocationID,
		UserID:           user.UserID,
		Date:             req.Date,
		ExpectedCash:     req.ExpectedCash,
		CountedCash:      req.CountedCash,
		Difference:       req.CountedCash.Sub(req.ExpectedCash),
		DifferenceReason: req.DifferenceReason,
		Note:             req.Note,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.closings.Create(ctx, closing); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "cash_closing", closing.ID.String(), audit.ActionCashClosing, user.UserID, nil, closing, req.DifferenceReason)

	logger.Info(ctx, "cash closing recorded",
		"location_id", closing.LocationID,
		"expected", closing.ExpectedCash,
		"counted", closing.CountedCash,
		"difference", closing.Difference,
	)
	return closing, nil
}

// CashClosings returns filtered closing history.
func (s *Service) CashClosings(ctx context.Context, filter ClosingFilter) ([]CashClosing, error) {
	return s.closings.List(ctx, filter)
}

// DaySummary aggregates one location's completed sales for the calendar
// day containing t (UTC). Expected cash counts cash sales in full, the
// cash slice of mixed payments and the down payment of credit sales.
func (s *Service) DaySummary(ctx context.Context, locationID id.ID, t time.Time) (*DaySummary, error) {
	if id.IsNil(locationID) {
		return nil, apperror.NewValidation("locationId is required")
	}

	from := t.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	sales, err := s.repo.ListCompletedBetween(ctx, locationID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &DaySummary{
		Date:         from,
		LocationID:   locationID,
		SaleCount:    len(sales),
		TotalSales:   types.Zero(),
		ExpectedCash: types.Zero(),
	}
	for _, sale := range sales {
		summary.TotalSales = summary.TotalSales.Add(sale.Total)
		switch sale.PaymentMethod {
		case PaymentCash:
			summary.ExpectedCash = summary.ExpectedCash.Add(sale.Total)
		case PaymentMixed:
			if sale.PaymentBreakdown != nil {
				summary.ExpectedCash = summary.ExpectedCash.Add(sale.PaymentBreakdown.Cash)
			}
		case PaymentCredit:
			summary.ExpectedCash = summary.ExpectedCash.Add(sale.PaidAmount)
		}
	}
	return summary, nil
}

// --- Internals ---

// checkDiscountPolicy caps the combined sale and line discounts as a
// percentage of the gross subtotal. ManagerApproval on the request
// waives the cap.
func (s *Service) checkDiscountPolicy(user *appctx.UserContext, req SaleRequest, gross, lineDiscounts types.Money) error {
	if req.ManagerApproval || gross.IsZero() {
		return nil
	}

	totalDiscount := req.Discount.Add(lineDiscounts)
	if totalDiscount.IsZero() {
		return nil
	}

	maxPercent := maxDiscountDefault
	if user.CanApproveDiscount() {
		maxPercent = maxDiscountPrivileged
	}

	percent := totalDiscount.Div(gross).Mul(decimal.NewFromInt(100))
	if percent.GreaterThan(decimal.NewFromFloat(maxPercent)) {
		return apperror.NewDiscountLimit(maxPercent)
	}
	return nil
}

// settle derives paid and remaining amounts from the payment method.
func settle(req SaleRequest, total types.Money) (paid, remaining types.Money, err error) {
	switch req.PaymentMethod {
	case PaymentMixed:
		provided := req.PaymentBreakdown.Total()
		if provided.Sub(total).Abs().GreaterThan(types.PaymentTolerance) {
			return types.Zero(), types.Zero(), apperror.NewBusinessRule(
				apperror.CodePaymentMismatch,
				"payment breakdown does not match sale total",
			).WithDetail("expected", total).WithDetail("provided", provided)
		}
		return total, types.Zero(), nil
	case PaymentCredit:
		if req.PaidAmount.GreaterThan(total) {
			return types.Zero(), types.Zero(), apperror.NewValidation("paidAmount exceeds sale total")
		}
		return req.PaidAmount, total.Sub(req.PaidAmount), nil
	default:
		return total, types.Zero(), nil
	}
}

// nextSaleNo allocates the next day-scoped sale number,
// e.g. SALE-20260829-00001. Numbering restarts every calendar day.
func (s *Service) nextSaleNo(ctx context.Context) (string, error) {
	day := time.Now().UTC().Format("20060102")
	n, err := s.seq.Next(ctx, sequence.DayCounter("sale", day))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SALE-%s-%05d", day, n), nil
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
