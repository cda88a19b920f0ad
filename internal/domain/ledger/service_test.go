package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
)

// fakeLedgerRepo keeps entries in memory and sums on demand.
type fakeLedgerRepo struct {
	entries []Entry
}

func (r *fakeLedgerRepo) Create(ctx context.Context, e Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeLedgerRepo) SumByParty(ctx context.Context, partyType PartyType, partyID id.ID) (types.Money, error) {
	sum := types.Zero()
	for _, e := range r.entries {
		if e.PartyType == partyType && e.PartyID == partyID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) List(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if filter.PartyID != nil && e.PartyID != *filter.PartyID {
			continue
		}
		if filter.PartyType != nil && e.PartyType != *filter.PartyType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeLedgerRepo) TopDebtors(ctx context.Context, limit int) ([]PartyBalance, error) {
	return nil, nil
}

var _ Repository = (*fakeLedgerRepo)(nil)

func testCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "user-1",
		Role:   appctx.RoleCashier,
	})
}

func TestAppendDefaultsAndValidation(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := NewService(repo)
	ctx := testCtx()

	customer := id.New()
	e, err := svc.Append(ctx, Entry{
		PartyType: PartyCustomer,
		PartyID:   customer,
		Amount:    types.MustMoney("25.00"),
		Type:      EntrySaleOnCredit,
		RefType:   "sale",
		RefID:     "SALE-20260829-00001",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, e.Currency)
	assert.Equal(t, "user-1", e.CreatedBy)
	assert.False(t, id.IsNil(e.ID))

	_, err = svc.Append(ctx, Entry{
		PartyType: PartyCustomer,
		PartyID:   customer,
		Amount:    types.Zero(),
		Type:      EntrySaleOnCredit,
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestAppendRequiresUser(t *testing.T) {
	svc := NewService(&fakeLedgerRepo{})

	_, err := svc.Append(context.Background(), Entry{
		PartyType: PartyCustomer,
		PartyID:   id.New(),
		Amount:    types.MustMoney("1.00"),
		Type:      EntryPayment,
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestPaymentSignConventions(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := NewService(repo)
	ctx := testCtx()

	customer := id.New()
	supplier := id.New()

	ce, err := svc.RecordPayment(ctx, PartyCustomer, customer, types.MustMoney("30.00"), "cash payment")
	require.NoError(t, err)
	assert.True(t, ce.Amount.IsNegative())

	se, err := svc.RecordPayment(ctx, PartySupplier, supplier, types.MustMoney("30.00"), "invoice settled")
	require.NoError(t, err)
	assert.True(t, se.Amount.IsPositive())

	_, err = svc.RecordPayment(ctx, PartyCustomer, customer, types.MustMoney("-5.00"), "")
	require.Error(t, err)
}

func TestBalanceIsRunningSum(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := NewService(repo)
	ctx := testCtx()

	customer := id.New()

	_, err := svc.Append(ctx, Entry{
		PartyType: PartyCustomer,
		PartyID:   customer,
		Amount:    types.MustMoney("100.00"),
		Type:      EntrySaleOnCredit,
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, PartyCustomer, customer, types.MustMoney("40.00"), "")
	require.NoError(t, err)

	bal, err := svc.Balance(ctx, PartyCustomer, customer)
	require.NoError(t, err)
	assert.True(t, bal.Equal(types.MustMoney("60.00")))

	unknown, err := svc.Balance(ctx, PartyCustomer, id.New())
	require.NoError(t, err)
	assert.True(t, unknown.IsZero())
}
