package barcodes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/sequence"
	"simbapos/internal/core/tx"
	"simbapos/internal/domain/audit"
	"simbapos/internal/domain/catalog"
)

type fakeBarcodeRepo struct {
	byValue map[string]*Barcode
	byID    map[id.ID]*Barcode
}

func newFakeBarcodeRepo() *fakeBarcodeRepo {
	return &fakeBarcodeRepo{
		byValue: make(map[string]*Barcode),
		byID:    make(map[id.ID]*Barcode),
	}
}

func (r *fakeBarcodeRepo) Create(ctx context.Context, b *Barcode) error {
	if _, exists := r.byValue[b.Value]; exists {
		return apperror.NewDuplicate("barcode", "value", b.Value)
	}
	cp := *b
	r.byValue[b.Value] = &cp
	r.byID[b.ID] = &cp
	return nil
}

func (r *fakeBarcodeRepo) GetByID(ctx context.Context, barcodeID id.ID) (*Barcode, error) {
	if b, ok := r.byID[barcodeID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, apperror.NewNotFound("barcode", barcodeID)
}

func (r *fakeBarcodeRepo) GetByValue(ctx context.Context, value string) (*Barcode, error) {
	if b, ok := r.byValue[value]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeBarcodeRepo) ListByVariant(ctx context.Context, variantID id.ID) ([]Barcode, error) {
	var out []Barcode
	for _, b := range r.byID {
		if b.VariantID == variantID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBarcodeRepo) HasInternal(ctx context.Context, variantID id.ID) (bool, error) {
	for _, b := range r.byID {
		if b.VariantID == variantID && b.Type == TypeInternal {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBarcodeRepo) ClearPrimary(ctx context.Context, variantID id.ID) error {
	for _, b := range r.byID {
		if b.VariantID == variantID {
			b.IsPrimary = false
		}
	}
	return nil
}

func (r *fakeBarcodeRepo) SetPrimary(ctx context.Context, barcodeID id.ID) error {
	if b, ok := r.byID[barcodeID]; ok {
		b.IsPrimary = true
		return nil
	}
	return apperror.NewNotFound("barcode", barcodeID)
}

func (r *fakeBarcodeRepo) Delete(ctx context.Context, barcodeID id.ID) error {
	b, ok := r.byID[barcodeID]
	if !ok {
		return apperror.NewNotFound("barcode", barcodeID)
	}
	delete(r.byValue, b.Value)
	delete(r.byID, barcodeID)
	return nil
}

var _ Repository = (*fakeBarcodeRepo)(nil)

func newBarcodeService(repo Repository) *Service {
	return NewService(repo, &catalog.MockLookup{}, &sequence.MockGenerator{}, audit.NopSink{}, &tx.MockManager{})
}

func barcodeCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "user-1",
		Role:   appctx.RoleManager,
	})
}

func TestGenerateInternal(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	v := id.New()
	b, err := svc.GenerateInternal(ctx, v)
	require.NoError(t, err)

	assert.Equal(t, "SIMBA-00000001", b.Value)
	assert.Equal(t, TypeInternal, b.Type)
	assert.True(t, b.IsPrimary)

	// Second internal code for the same variant is rejected.
	_, err = svc.GenerateInternal(ctx, v)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestGenerateInternalRetriesOnCollision(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	// A hand-registered code squats on the first sequence value.
	taken := &Barcode{
		ID:        id.New(),
		Value:     "SIMBA-00000001",
		Type:      TypeCode128,
		VariantID: id.New(),
		CreatedBy: "user-0",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, taken))

	b, err := svc.GenerateInternal(ctx, id.New())
	require.NoError(t, err)
	assert.Equal(t, "SIMBA-00000002", b.Value)
}

func TestGenerateInternalGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	for i := 1; i <= maxGenerateAttempts; i++ {
		taken := &Barcode{
			ID:        id.New(),
			Value:     fmt.Sprintf(internalFormat, i),
			Type:      TypeCode128,
			VariantID: id.New(),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, taken))
	}

	_, err := svc.GenerateInternal(ctx, id.New())
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestGenerateInternalKeepsExistingPrimary(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	v := id.New()
	_, err := svc.Create(ctx, CreateRequest{
		Value:     "4607001234567",
		Type:      TypeEAN13,
		VariantID: v,
		IsPrimary: true,
	})
	require.NoError(t, err)

	b, err := svc.GenerateInternal(ctx, v)
	require.NoError(t, err)
	assert.False(t, b.IsPrimary)
}

func TestCreateDuplicateValueRejected(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	req := CreateRequest{Value: "4607001234567", Type: TypeEAN13, VariantID: id.New()}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	req.VariantID = id.New()
	_, err = svc.Create(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestSetPrimarySwitches(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	v := id.New()
	first, err := svc.Create(ctx, CreateRequest{
		Value: "111", Type: TypeCode128, VariantID: v, IsPrimary: true,
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateRequest{
		Value: "222", Type: TypeCode128, VariantID: v,
	})
	require.NoError(t, err)

	_, err = svc.SetPrimary(ctx, second.ID)
	require.NoError(t, err)

	all, err := svc.ListByVariant(ctx, v)
	require.NoError(t, err)
	for _, b := range all {
		switch b.ID {
		case first.ID:
			assert.False(t, b.IsPrimary)
		case second.ID:
			assert.True(t, b.IsPrimary)
		}
	}
}

func TestLookup(t *testing.T) {
	repo := newFakeBarcodeRepo()
	svc := newBarcodeService(repo)
	ctx := barcodeCtx()

	v := id.New()
	created, err := svc.Create(ctx, CreateRequest{
		Value: "4607009876543", Type: TypeEAN13, VariantID: v,
	})
	require.NoError(t, err)

	b, variant, err := svc.Lookup(ctx, created.Value)
	require.NoError(t, err)
	assert.Equal(t, created.ID, b.ID)
	assert.Equal(t, v, variant.ID)

	_, _, err = svc.Lookup(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
