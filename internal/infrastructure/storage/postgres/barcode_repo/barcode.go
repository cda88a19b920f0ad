// Package barcode_repo provides the PostgreSQL implementation of
// barcode persistence.
package barcode_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/domain/barcodes"
	"simbapos/internal/infrastructure/storage/postgres"
)

const barcodesTable = "barcodes"

var barcodeColumns = []string{
	"id", "value", "barcode_type", "variant_id",
	"is_primary", "created_by", "created_at",
}

// BarcodeRepo implements barcodes.Repository.
type BarcodeRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBarcodeRepo creates the barcode repository.
func NewBarcodeRepo(txm *postgres.TxManager) *BarcodeRepo {
	return &BarcodeRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a barcode. A unique violation on value maps to a
// duplicate error so the generation loop can retry.
func (r *BarcodeRepo) Create(ctx context.Context, b *barcodes.Barcode) error {
	q := r.builder.Insert(barcodesTable).Columns(barcodeColumns...).Values(
		b.ID, b.Value, b.Type, b.VariantID,
		b.IsPrimary, b.CreatedBy, b.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("barcode", "value", b.Value)
		}
		return fmt.Errorf("insert barcode: %w", err)
	}
	return nil
}

// GetByID loads one barcode.
func (r *BarcodeRepo) GetByID(ctx context.Context, barcodeID id.ID) (*barcodes.Barcode, error) {
	q := r.builder.Select(barcodeColumns...).From(barcodesTable).
		Where(squirrel.Eq{"id": barcodeID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b barcodes.Barcode
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("barcode", barcodeID)
		}
		return nil, fmt.Errorf("get barcode: %w", err)
	}
	return &b, nil
}

// GetByValue loads one barcode by scanned value, nil when absent.
func (r *BarcodeRepo) GetByValue(ctx context.Context, value string) (*barcodes.Barcode, error) {
	q := r.builder.Select(barcodeColumns...).From(barcodesTable).
		Where(squirrel.Eq{"value": value}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b barcodes.Barcode
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get barcode by value: %w", err)
	}
	return &b, nil
}

// ListByVariant returns all barcodes of a variant.
func (r *BarcodeRepo) ListByVariant(ctx context.Context, variantID id.ID) ([]barcodes.Barcode, error) {
	q := r.builder.Select(barcodeColumns...).From(barcodesTable).
		Where(squirrel.Eq{"variant_id": variantID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var list []barcodes.Barcode
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &list, sql, args...); err != nil {
		return nil, fmt.Errorf("select barcodes: %w", err)
	}
	return list, nil
}

// HasInternal reports whether the variant already owns an internal code.
func (r *BarcodeRepo) HasInternal(ctx context.Context, variantID id.ID) (bool, error) {
	sql := `
		SELECT EXISTS (
			SELECT 1 FROM barcodes
			WHERE variant_id = $1 AND barcode_type = $2
		)
	`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, variantID, barcodes.TypeInternal).Scan(&exists); err != nil {
		return false, fmt.Errorf("check internal barcode: %w", err)
	}
	return exists, nil
}

// ClearPrimary unsets the primary flag on all of a variant's barcodes.
func (r *BarcodeRepo) ClearPrimary(ctx context.Context, variantID id.ID) error {
	q := r.builder.Update(barcodesTable).
		Set("is_primary", false).
		Where(squirrel.Eq{"variant_id": variantID, "is_primary": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	return nil
}

// SetPrimary sets the primary flag on one barcode.
func (r *BarcodeRepo) SetPrimary(ctx context.Context, barcodeID id.ID) error {
	q := r.builder.Update(barcodesTable).
		Set("is_primary", true).
		Where(squirrel.Eq{"id": barcodeID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("barcode", barcodeID)
	}
	return nil
}

// Delete removes one barcode.
func (r *BarcodeRepo) Delete(ctx context.Context, barcodeID id.ID) error {
	q := r.builder.Delete(barcodesTable).Where(squirrel.Eq{"id": barcodeID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete barcode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("barcode", barcodeID)
	}
	return nil
}

// Ensure interface compliance.
var _ barcodes.Repository = (*BarcodeRepo)(nil)
