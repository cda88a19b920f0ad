package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
)

// --- In-memory fakes ---

type fakeSalesRepo struct {
	sales map[id.ID]*Sale
}

func newFakeSalesRepo() *fakeSalesRepo {
	return &fakeSalesRepo{sales: make(map[id.ID]*Sale)}
}

func (r *fakeSalesRepo) Create(ctx context.Context, sale *Sale) error {
	cp := *sale
	r.sales[sale.ID] = &cp
	return nil
}

func (r *fakeSalesRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	if s, ok := r.sales[saleID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

func (r *fakeSalesRepo) GetBySaleNo(ctx context.Context, saleNo string) (*Sale, error) {
	for _, s := range r.sales {
		if s.SaleNo == saleNo {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleNo)
}

func (r *fakeSalesRepo) MarkVoided(ctx context.Context, sale *Sale) error {
	stored, ok := r.sales[sale.ID]
	if !ok {
		return apperror.NewNotFound("sale", sale.ID)
	}
	stored.Status = sale.Status
	stored.VoidedBy = sale.VoidedBy
	stored.VoidReason = sale.VoidReason
	stored.UpdatedAt = sale.UpdatedAt
	return nil
}

func (r *fakeSalesRepo) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeSalesRepo) ListCompletedBetween(ctx context.Context, locationID id.ID, from, to time.Time) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		if s.LocationID != locationID || s.Status != StatusCompleted {
			continue
		}
		if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

var _ Repository = (*fakeSalesRepo)(nil)

type fakeClosingRepo struct {
	closings []CashClosing
}

func (r *fakeClosingRepo) Create(ctx context.Context, c *CashClosing) error {
	r.closings = append(r.closings, *c)
	return nil
}

func (r *fakeClosingRepo) List(ctx context.Context, filter ClosingFilter) ([]CashClosing, error) {
	return r.closings, nil
}

var _ ClosingRepository = (*fakeClosingRepo)(nil)

type fakeStockRepo struct {
	movements []stock.Movement
	balances  map[string]stock.Balance
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{balances: make(map[string]stock.Balance)}
}

func stockKey(variantID, locationID id.ID) string {
	return variantID.String() + "/" + locationID.String()
}

func (r *fakeStockRepo) seed(variantID, locationID id.ID, qty types.Quantity) {
	r.balances[stockKey(variantID, locationID)] = stock.Balance{
		VariantID: variantID, LocationID: locationID, Quantity: qty,
	}
}

func (r *fakeStockRepo) CreateMovement(ctx context.Context, m stock.Movement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *fakeStockRepo) Movements(ctx context.Context, f stock.MovementFilter) ([]stock.Movement, error) {
	return r.movements, nil
}

func (r *fakeStockRepo) MovementsByReference(ctx context.Context, refType, refID string) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range r.movements {
		if m.RefType == refType && m.RefID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) GetBalance(ctx context.Context, variantID, locationID id.ID) (stock.Balance, error) {
	if b, ok := r.balances[stockKey(variantID, locationID)]; ok {
		return b, nil
	}
	return stock.Balance{VariantID: variantID, LocationID: locationID}, nil
}

func (r *fakeStockRepo) GetBalanceForUpdate(ctx context.Context, variantID, locationID id.ID) (stock.Balance, error) {
	return r.GetBalance(ctx, variantID, locationID)
}

func (r *fakeStockRepo) ApplyDelta(ctx context.Context, variantID, locationID id.ID, delta types.Quantity) error {
	key := stockKey(variantID, locationID)
	b, ok := r.balances[key]
	if !ok {
		b = stock.Balance{VariantID: variantID, LocationID: locationID}
	}
	b.Quantity += delta
	r.balances[key] = b
	return nil
}

func (r *fakeStockRepo) BalancesByLocation(ctx context.Context, locationID id.ID) ([]stock.Balance, error) {
	return nil, nil
}

func (r *fakeStockRepo) BalancesByVariant(ctx context.Context, variantID id.ID) ([]stock.Balance, error) {
	return nil, nil
}

func (r *fakeStockRepo) BalancesBelowThreshold(ctx context.Context, threshold types.Quantity) ([]stock.Balance, error) {
	return nil, nil
}

var _ stock.Repository = (*fakeStockRepo)(nil)

type fakeLedgerRepo struct {
	entries []ledger.Entry
}

func (r *fakeLedgerRepo) Create(ctx context.Context, e ledger.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeLedgerRepo) SumByParty(ctx context.Context, partyType ledger.PartyType, partyID id.ID) (types.Money, error) {
	sum := types.Zero()
	for _, e := range r.entries {
		if e.PartyType == partyType && e.PartyID == partyID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) List(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return r.entries, nil
}

func (r *fakeLedgerRepo) TopDebtors(ctx context.Context, limit int) ([]ledger.PartyBalance, error) {
	return nil, nil
}

var _ ledger.Repository = (*fakeLedgerRepo)(nil)

// --- Test harness ---

type env struct {
	svc        *Service
	salesRepo  *fakeSalesRepo
	stockRepo  *fakeStockRepo
	ledgerRepo *fakeLedgerRepo
	closings   *fakeClosingRepo
	stockSvc   *stock.Service
	ledgerSvc  *ledger.Service
}

func newEnv() *env {
	salesRepo := newFakeSalesRepo()
	stockRepo := newFakeStockRepo()
	ledgerRepo := &fakeLedgerRepo{}
	closings := &fakeClosingRepo{}

	txm := &tx.MockManager{}
	seq := &sequence.MockGenerator{}
	sink := audit.NopSink{}

	stockSvc := stock.NewService(stockRepo, seq, sink, txm, stock.Config{})
	ledgerSvc := ledger.NewService(ledgerRepo)
	lookup := &catalog.MockLookup{
		GetVariantFunc: func(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
			return &catalog.Variant{ID: variantID, Name: "Teddy Bear", SKU: "TB-01", Active: true}, nil
		},
	}

	return &env{
		svc:        NewService(salesRepo, closings, stockSvc, ledgerSvc, lookup, seq, sink, txm),
		salesRepo:  salesRepo,
		stockRepo:  stockRepo,
		ledgerRepo: ledgerRepo,
		closings:   closings,
		stockSvc:   stockSvc,
		ledgerSvc:  ledgerSvc,
	}
}

func ctxWithRole(role appctx.Role) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "user-1",
		Role:   role,
	})
}

func cashSaleRequest(loc, variant id.ID, qty types.Quantity, price string) SaleRequest {
	return SaleRequest{
		LocationID:    loc,
		PaymentMethod: PaymentCash,
		Items: []SaleItemRequest{
			{VariantID: variant, Quantity: qty, UnitPrice: types.MustMoney(price)},
		},
	}
}

// --- Tests ---

func TestCreateSaleCash(t *testing.T) {
	e := newEnv()
	ctx := ctxWithRole(appctx.RoleCashier)

	loc, v := id.New(), id.New()
	e.stockRepo.seed(v, loc, 10)

	sale, err := e.svc.CreateSale(ctx, cashSaleRequest(loc, v, 2, "15.00"))
	require.NoError(t, err)

	assert.Regexp(t, `^SALE-\d{8}-00001$`, sale.SaleNo)
	assert.Equal(t, StatusCompleted, sale.Status)
	assert.True(t, sale.Total.Equal(types.MustMoney("30.00")))
	assert.True(t, sale.PaidAmount.Equal(sale.Total))
	assert.True(t, sale.RemainingDebt.IsZero())
	assert.Equal(t, "Teddy Bear", sale.Items[0].ProductName)

	q, _ := e.stockSvc.Quantity(ctx, v, loc)
	assert.Equal(t, types.Quantity(8), q)

	require.Len(t, e.stockRepo.movements, 1)
	m := e.stockRepo.movements[0]
	assert.Equal(t, stock.MovementSaleOut, m.Type)
	assert.Equal(t, types.Quantity(-2), m.Quantity)
	assert.Equal(t, sale.ID.String(), m.RefID)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	e := newEnv()
	ctx := ctxWithRole(appctx.RoleCashier)

	loc, v := id.New(), id.New()
	e.stockRepo.seed(v, loc, 1)

	_, err := e.svc.CreateSale(ctx, cashSaleRequest(loc, v, 3, "10.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestCreateSaleDiscountPolicy(t *testing.T) {
	loc, v := id.New(), id.New()

	base := func() SaleRequest {
		req := cashSaleRequest(loc, v, 1, "100.00")
		req.Discount = types.MustMoney("25.00") // 25%
		return req
	}

	t.Run("cashier over cap rejected", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 100)

		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), base())
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeDiscountLimit, appErr.Code)
	})

	t.Run("manager within cap allowed", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 100)

		sale, err := e.svc.CreateSale(ctxWithRole(appctx.RoleManager), base())
		require.NoError(t, err)
		assert.True(t, sale.Total.Equal(types.MustMoney("75.00")))
	})

	t.Run("manager approval waives cap", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 100)

		req := base()
		req.ManagerApproval = true
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
		require.NoError(t, err)
	})

	t.Run("manager over fifty percent rejected", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 100)

		req := base()
		req.Discount = types.MustMoney("60.00")
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleManager), req)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeDiscountLimit, appErr.Code)
	})

	t.Run("line discounts count toward cap", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 100)

		req := cashSaleRequest(loc, v, 1, "100.00")
		req.Items[0].Discount = types.MustMoney("25.00")
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeDiscountLimit, appErr.Code)
	})
}

func TestCreateSaleMixedPayment(t *testing.T) {
	loc, v := id.New(), id.New()

	t.Run("breakdown mismatch rejected", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 10)

		req := cashSaleRequest(loc, v, 2, "15.00") // total 30.00
		req.PaymentMethod = PaymentMixed
		req.PaymentBreakdown = &PaymentBreakdown{
			Cash: types.MustMoney("10.00"),
			Card: types.MustMoney("15.00"),
		}
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodePaymentMismatch, appErr.Code)
	})

	t.Run("within tolerance accepted", func(t *testing.T) {
		e := newEnv()
		e.stockRepo.seed(v, loc, 10)

		req := cashSaleRequest(loc, v, 2, "15.00")
		req.PaymentMethod = PaymentMixed
		req.PaymentBreakdown = &PaymentBreakdown{
			Cash: types.MustMoney("10.00"),
			Card: types.MustMoney("20.01"),
		}
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
		require.NoError(t, err)
	})

	t.Run("breakdown required", func(t *testing.T) {
		e := newEnv()
		req := cashSaleRequest(loc, v, 1, "10.00")
		req.PaymentMethod = PaymentMixed
		_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
		require.Error(t, err)
	})
}

func TestCreateSaleOnCredit(t *testing.T) {
	e := newEnv()
	ctx := ctxWithRole(appctx.RoleCashier)

	loc, v := id.New(), id.New()
	customer := id.New()
	e.stockRepo.seed(v, loc, 10)

	req := cashSaleRequest(loc, v, 2, "50.00") // total 100.00
	req.PaymentMethod = PaymentCredit
	req.CustomerID = &customer
	req.PaidAmount = types.MustMoney("40.00")

	sale, err := e.svc.CreateSale(ctx, req)
	require.NoError(t, err)
	assert.True(t, sale.RemainingDebt.Equal(types.MustMoney("60.00")))

	bal, err := e.ledgerSvc.Balance(ctx, ledger.PartyCustomer, customer)
	require.NoError(t, err)
	assert.True(t, bal.Equal(types.MustMoney("60.00")))

	require.Len(t, e.ledgerRepo.entries, 1)
	assert.Equal(t, ledger.EntrySaleOnCredit, e.ledgerRepo.entries[0].Type)
}

func TestCreateSaleCreditRequiresCustomer(t *testing.T) {
	e := newEnv()
	req := cashSaleRequest(id.New(), id.New(), 1, "10.00")
	req.PaymentMethod = PaymentCredit

	_, err := e.svc.CreateSale(ctxWithRole(appctx.RoleCashier), req)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestVoidSale(t *testing.T) {
	e := newEnv()
	cashierCtx := ctxWithRole(appctx.RoleCashier)
	managerCtx := ctxWithRole(appctx.RoleManager)

	loc, v := id.New(), id.New()
	customer := id.New()
	e.stockRepo.seed(v, loc, 10)

	req := cashSaleRequest(loc, v, 3, "20.00") // total 60.00
	req.PaymentMethod = PaymentCredit
	req.CustomerID = &customer

	sale, err := e.svc.CreateSale(cashierCtx, req)
	require.NoError(t, err)

	q, _ := e.stockSvc.Quantity(cashierCtx, v, loc)
	require.Equal(t, types.Quantity(7), q)

	t.Run("cashier cannot void", func(t *testing.T) {
		_, err := e.svc.VoidSale(cashierCtx, sale.ID, "wrong items")
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeForbidden, appErr.Code)
	})

	t.Run("reason required", func(t *testing.T) {
		_, err := e.svc.VoidSale(managerCtx, sale.ID, "")
		require.Error(t, err)
	})

	t.Run("manager voids and reverses effects", func(t *testing.T) {
		voided, err := e.svc.VoidSale(managerCtx, sale.ID, "customer refused")
		require.NoError(t, err)
		assert.Equal(t, StatusVoided, voided.Status)
		assert.Equal(t, "customer refused", voided.VoidReason)

		q, _ := e.stockSvc.Quantity(managerCtx, v, loc)
		assert.Equal(t, types.Quantity(10), q)

		bal, _ := e.ledgerSvc.Balance(managerCtx, ledger.PartyCustomer, customer)
		assert.True(t, bal.IsZero())

		returns, _ := e.stockSvc.MovementsByReference(managerCtx, stock.RefTypeSaleVoid, sale.ID.String())
		require.Len(t, returns, 1)
		assert.Equal(t, stock.MovementReturnIn, returns[0].Type)
	})

	t.Run("double void rejected", func(t *testing.T) {
		_, err := e.svc.VoidSale(managerCtx, sale.ID, "again")
		require.Error(t, err)
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, apperror.CodeSaleAlreadyVoided, appErr.Code)
	})
}

func TestCashClosing(t *testing.T) {
	e := newEnv()
	ctx := ctxWithRole(appctx.RoleCashier)
	loc := id.New()

	t.Run("difference requires reason", func(t *testing.T) {
		_, err := e.svc.CreateCashClosing(ctx, CashClosingRequest{
			LocationID:   loc,
			Date:         time.Now().UTC(),
			ExpectedCash: types.MustMoney("100.00"),
			CountedCash:  types.MustMoney("95.00"),
		})
		require.Error(t, err)
	})

	t.Run("difference computed", func(t *testing.T) {
		closing, err := e.svc.CreateCashClosing(ctx, CashClosingRequest{
			LocationID:       loc,
			Date:             time.Now().UTC(),
			ExpectedCash:     types.MustMoney("100.00"),
			CountedCash:      types.MustMoney("95.00"),
			DifferenceReason: "change shortage",
		})
		require.NoError(t, err)
		assert.True(t, closing.Difference.Equal(types.MustMoney("-5.00")))
		assert.Equal(t, "user-1", closing.UserID)
	})
}

func TestDaySummary(t *testing.T) {
	e := newEnv()
	ctx := ctxWithRole(appctx.RoleCashier)

	loc, v := id.New(), id.New()
	customer := id.New()
	e.stockRepo.seed(v, loc, 100)

	// Cash sale: 20.00, all cash.
	_, err := e.svc.CreateSale(ctx, cashSaleRequest(loc, v, 2, "10.00"))
	require.NoError(t, err)

	// Mixed sale: 30.00, of which 12.00 cash.
	mixed := cashSaleRequest(loc, v, 3, "10.00")
	mixed.PaymentMethod = PaymentMixed
	mixed.PaymentBreakdown = &PaymentBreakdown{
		Cash: types.MustMoney("12.00"),
		Card: types.MustMoney("18.00"),
	}
	_, err = e.svc.CreateSale(ctx, mixed)
	require.NoError(t, err)

	// Credit sale: 50.00, 10.00 down payment.
	credit := cashSaleRequest(loc, v, 5, "10.00")
	credit.PaymentMethod = PaymentCredit
	credit.CustomerID = &customer
	credit.PaidAmount = types.MustMoney("10.00")
	_, err = e.svc.CreateSale(ctx, credit)
	require.NoError(t, err)

	summary, err := e.svc.DaySummary(ctx, loc, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SaleCount)
	assert.True(t, summary.TotalSales.Equal(types.MustMoney("100.00")))
	assert.True(t, summary.ExpectedCash.Equal(types.MustMoney("42.00")))
}
