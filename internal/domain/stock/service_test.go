package stock

import (
	"context"
	"strings"
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
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	movements []Movement
	balances  map[string]Balance
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: make(map[string]Balance)}
}

func balanceKey(variantID, locationID id.ID) string {
	return variantID.String() + "/" + locationID.String()
}

func (r *fakeRepo) seed(variantID, locationID id.ID, qty types.Quantity) {
	r.balances[balanceKey(variantID, locationID)] = Balance{
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   qty,
	}
}

func (r *fakeRepo) CreateMovement(ctx context.Context, m Movement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *fakeRepo) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return r.movements, nil
}

func (r *fakeRepo) MovementsByReference(ctx context.Context, refType, refID string) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.RefType == refType && m.RefID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetBalance(ctx context.Context, variantID, locationID id.ID) (Balance, error) {
	if b, ok := r.balances[balanceKey(variantID, locationID)]; ok {
		return b, nil
	}
	return Balance{VariantID: variantID, LocationID: locationID}, nil
}

func (r *fakeRepo) GetBalanceForUpdate(ctx context.Context, variantID, locationID id.ID) (Balance, error) {
	return r.GetBalance(ctx, variantID, locationID)
}

func (r *fakeRepo) ApplyDelta(ctx context.Context, variantID, locationID id.ID, delta types.Quantity) error {
	key := balanceKey(variantID, locationID)
	b, ok := r.balances[key]
	if !ok {
		b = Balance{VariantID: variantID, LocationID: locationID}
	}
	b.Quantity += delta
	b.LastMovementAt = time.Now().UTC()
	r.balances[key] = b
	return nil
}

func (r *fakeRepo) BalancesByLocation(ctx context.Context, locationID id.ID) ([]Balance, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.LocationID == locationID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) BalancesByVariant(ctx context.Context, variantID id.ID) ([]Balance, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.VariantID == variantID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) BalancesBelowThreshold(ctx context.Context, threshold types.Quantity) ([]Balance, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.Quantity < threshold {
			out = append(out, b)
		}
	}
	return out, nil
}

var _ Repository = (*fakeRepo)(nil)

func userCtx(role appctx.Role) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "user-1",
		Username: "tester",
		Role:     role,
	})
}

func newTestService(repo *fakeRepo, cfg Config) *Service {
	return NewService(repo, &sequence.MockGenerator{}, audit.NopSink{}, &tx.MockManager{}, cfg)
}

func TestReceivePostsAllLines(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	v1, v2 := id.New(), id.New()
	cost := types.MustMoney("12.50")

	res, err := svc.Receive(ctx, ReceiveRequest{
		LocationID: loc,
		Supplier:   "ACME Toys",
		Items: []ReceiveItem{
			{VariantID: v1, Quantity: 10, CostPrice: &cost},
			{VariantID: v2, Quantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Len(t, res.Movements, 2)
	assert.Equal(t, types.Quantity(15), res.TotalQuantity)
	assert.True(t, strings.HasPrefix(res.ReceiptNo, "RCP-"))
	assert.Regexp(t, `^RCP-\d{8}-00001$`, res.ReceiptNo)

	for _, m := range res.Movements {
		assert.Equal(t, MovementPurchaseIn, m.Type)
		assert.Equal(t, RefTypeReceipt, m.RefType)
		assert.Equal(t, res.ReceiptNo, m.RefID)
		assert.True(t, m.Quantity.IsPositive())
	}

	q1, _ := svc.Quantity(ctx, v1, loc)
	q2, _ := svc.Quantity(ctx, v2, loc)
	assert.Equal(t, types.Quantity(10), q1)
	assert.Equal(t, types.Quantity(5), q2)
}

func TestReceiveValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	_, err := svc.Receive(ctx, ReceiveRequest{LocationID: id.New()})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.Receive(ctx, ReceiveRequest{
		LocationID: id.New(),
		Items:      []ReceiveItem{{VariantID: id.New(), Quantity: -3}},
	})
	require.Error(t, err)
}

func TestReceiveRequiresUser(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})

	_, err := svc.Receive(context.Background(), ReceiveRequest{
		LocationID: id.New(),
		Items:      []ReceiveItem{{VariantID: id.New(), Quantity: 1}},
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestTransferPairsMovements(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	from, to := id.New(), id.New()
	v := id.New()
	repo.seed(v, from, 20)

	res, err := svc.Transfer(ctx, TransferRequest{
		FromLocationID: from,
		ToLocationID:   to,
		Items:          []TransferItem{{VariantID: v, Quantity: 8}},
	})
	require.NoError(t, err)

	require.Len(t, res.OutMovements, 1)
	require.Len(t, res.InMovements, 1)

	out, in := res.OutMovements[0], res.InMovements[0]
	assert.Equal(t, MovementTransferOut, out.Type)
	assert.Equal(t, MovementTransferIn, in.Type)
	assert.Equal(t, types.Quantity(-8), out.Quantity)
	assert.Equal(t, types.Quantity(8), in.Quantity)
	require.NotNil(t, out.TransferGroupID)
	require.NotNil(t, in.TransferGroupID)
	assert.Equal(t, *out.TransferGroupID, *in.TransferGroupID)

	qFrom, _ := svc.Quantity(ctx, v, from)
	qTo, _ := svc.Quantity(ctx, v, to)
	assert.Equal(t, types.Quantity(12), qFrom)
	assert.Equal(t, types.Quantity(8), qTo)
}

func TestTransferSameLocationRejected(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	_, err := svc.Transfer(ctx, TransferRequest{
		FromLocationID: loc,
		ToLocationID:   loc,
		Items:          []TransferItem{{VariantID: id.New(), Quantity: 1}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSameLocationTransfer, appErr.Code)
}

func TestTransferInsufficientStock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	from, to := id.New(), id.New()
	v := id.New()
	repo.seed(v, from, 3)

	_, err := svc.Transfer(ctx, TransferRequest{
		FromLocationID: from,
		ToLocationID:   to,
		Items:          []TransferItem{{VariantID: v, Quantity: 5}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(3), appErr.Details["available"])
	assert.Empty(t, repo.movements)
}

func TestTransferAllowNegativePolicy(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{AllowNegativeStock: true})
	ctx := userCtx(appctx.RoleWarehouse)

	from, to := id.New(), id.New()
	v := id.New()

	_, err := svc.Transfer(ctx, TransferRequest{
		FromLocationID: from,
		ToLocationID:   to,
		Items:          []TransferItem{{VariantID: v, Quantity: 5}},
	})
	require.NoError(t, err)

	qFrom, _ := svc.Quantity(ctx, v, from)
	assert.Equal(t, types.Quantity(-5), qFrom)
}

func TestAdjustRoleGate(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})

	_, err := svc.Adjust(userCtx(appctx.RoleCashier), AdjustmentRequest{
		LocationID: id.New(),
		Reason:     "damaged goods",
		Items:      []AdjustmentItem{{VariantID: id.New(), Quantity: -1}},
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestAdjustRequiresReason(t *testing.T) {
	svc := newTestService(newFakeRepo(), Config{})

	_, err := svc.Adjust(userCtx(appctx.RoleManager), AdjustmentRequest{
		LocationID: id.New(),
		Items:      []AdjustmentItem{{VariantID: id.New(), Quantity: 1}},
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestAdjustSkipsZeroLines(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	v1, v2 := id.New(), id.New()
	repo.seed(v1, loc, 10)

	res, err := svc.Adjust(ctx, AdjustmentRequest{
		LocationID: loc,
		Reason:     "count correction",
		Items: []AdjustmentItem{
			{VariantID: v1, Quantity: -2},
			{VariantID: v2, Quantity: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalItems)
	assert.Len(t, repo.movements, 1)
}

func TestAdjustNegativeBelowZeroRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	v := id.New()
	repo.seed(v, loc, 2)

	_, err := svc.Adjust(ctx, AdjustmentRequest{
		LocationID: loc,
		Reason:     "shrinkage",
		Items:      []AdjustmentItem{{VariantID: v, Quantity: -5}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestStocktakeFinalizeDiffOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	matched, short, over := id.New(), id.New(), id.New()
	repo.seed(matched, loc, 10)
	repo.seed(short, loc, 10)
	repo.seed(over, loc, 10)

	res, err := svc.FinalizeStocktake(ctx, StocktakeFinalizeRequest{
		LocationID: loc,
		Reason:     "monthly count",
		Items: []StocktakeCount{
			{VariantID: matched, CountedQuantity: 10},
			{VariantID: short, CountedQuantity: 7},
			{VariantID: over, CountedQuantity: 12},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalAdjustments)
	assert.Len(t, repo.movements, 2)
	require.Len(t, res.Lines, 3)

	byVariant := make(map[id.ID]StocktakeLine)
	for _, l := range res.Lines {
		byVariant[l.VariantID] = l
	}
	assert.Nil(t, byVariant[matched].MovementID)
	assert.Equal(t, types.Quantity(-3), byVariant[short].Difference)
	assert.Equal(t, types.Quantity(2), byVariant[over].Difference)

	qShort, _ := svc.Quantity(ctx, short, loc)
	qOver, _ := svc.Quantity(ctx, over, loc)
	assert.Equal(t, types.Quantity(7), qShort)
	assert.Equal(t, types.Quantity(12), qOver)

	for _, m := range repo.movements {
		assert.Equal(t, MovementAdjustment, m.Type)
		assert.Equal(t, RefTypeStocktake, m.RefType)
		assert.Contains(t, m.Note, "system:")
		assert.Contains(t, m.Note, "counted:")
	}
}

func TestStocktakeFinalizeCountsUnseenVariant(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleManager)

	loc := id.New()
	v := id.New() // no balance row yet

	res, err := svc.FinalizeStocktake(ctx, StocktakeFinalizeRequest{
		LocationID: loc,
		Reason:     "found on shelf",
		Items:      []StocktakeCount{{VariantID: v, CountedQuantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalAdjustments)

	q, _ := svc.Quantity(ctx, v, loc)
	assert.Equal(t, types.Quantity(4), q)
}

func TestCreateMovementOutboundChecked(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleCashier)

	loc := id.New()
	v := id.New()
	repo.seed(v, loc, 1)

	_, err := svc.CreateMovement(ctx, MovementRequest{
		VariantID:  v,
		LocationID: loc,
		Quantity:   -2,
		Type:       MovementSaleOut,
		RefType:    RefTypeSale,
		RefID:      "some-sale",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	m, err := svc.CreateMovement(ctx, MovementRequest{
		VariantID:  v,
		LocationID: loc,
		Quantity:   -1,
		Type:       MovementSaleOut,
		RefType:    RefTypeSale,
		RefID:      "some-sale",
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(-1), m.Quantity)

	q, _ := svc.Quantity(ctx, v, loc)
	assert.Equal(t, types.Quantity(0), q)
}

func TestDocumentNumbersIncrementPerDay(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, Config{})
	ctx := userCtx(appctx.RoleWarehouse)

	loc := id.New()
	req := ReceiveRequest{
		LocationID: loc,
		Items:      []ReceiveItem{{VariantID: id.New(), Quantity: 1}},
	}

	first, err := svc.Receive(ctx, req)
	require.NoError(t, err)
	second, err := svc.Receive(ctx, req)
	require.NoError(t, err)

	assert.Regexp(t, `-00001$`, first.ReceiptNo)
	assert.Regexp(t, `-00002$`, second.ReceiptNo)
}
