// Package catalog_repo provides the PostgreSQL implementation of the
// product catalog lookup.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/domain/catalog"
	"simbapos/internal/infrastructure/storage/postgres"
)

const variantsTable = "product_variants"

// VariantRepo implements catalog.Lookup.
type VariantRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewVariantRepo creates the variant repository.
func NewVariantRepo(txm *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetVariant loads one variant by id.
func (r *VariantRepo) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	q := r.builder.Select(
		"id", "product_id", "name", "sku", "cost_price", "sale_price", "active",
	).From(variantsTable).
		Where(squirrel.Eq{"id": variantID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variant catalog.Variant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &variant, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &variant, nil
}

// Ensure interface compliance.
var _ catalog.Lookup = (*VariantRepo)(nil)
