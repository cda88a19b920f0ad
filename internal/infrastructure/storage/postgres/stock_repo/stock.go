// Package stock_repo provides the PostgreSQL implementation of the
// stock movement ledger and balance cache.
package stock_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/stock"
	"simbapos/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "stock_movements"
	balancesTable  = "stock_balances"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates the stock repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovement appends one ledger row.
func (r *StockRepo) CreateMovement(ctx context.Context, m stock.Movement) error {
	q := r.builder.Insert(movementsTable).Columns(
		"id", "variant_id", "location_id", "quantity", "movement_type",
		"ref_type", "ref_id", "transfer_group_id", "cost_price",
		"note", "created_by", "created_at",
	).Values(
		m.ID, m.VariantID, m.LocationID, m.Quantity, m.Type,
		m.RefType, m.RefID, m.TransferGroupID, m.CostPrice,
		m.Note, m.CreatedBy, m.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// Movements returns filtered ledger rows, newest first.
func (r *StockRepo) Movements(ctx context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	q := r.builder.Select(
		"id", "variant_id", "location_id", "quantity", "movement_type",
		"ref_type", "ref_id", "transfer_group_id", "cost_price",
		"note", "created_by", "created_at",
	).From(movementsTable)

	if filter.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *filter.VariantID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}

	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// MovementsByReference returns all rows linked to one document.
func (r *StockRepo) MovementsByReference(ctx context.Context, refType, refID string) ([]stock.Movement, error) {
	q := r.builder.Select(
		"id", "variant_id", "location_id", "quantity", "movement_type",
		"ref_type", "ref_id", "transfer_group_id", "cost_price",
		"note", "created_by", "created_at",
	).From(movementsTable).
		Where(squirrel.Eq{"ref_type": refType, "ref_id": refID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements by reference: %w", err)
	}
	return movements, nil
}

// GetBalance returns the cached balance, zero quantity when absent.
func (r *StockRepo) GetBalance(ctx context.Context, variantID, locationID id.ID) (stock.Balance, error) {
	var balance stock.Balance

	q := r.builder.Select(
		"variant_id", "location_id", "quantity", "last_movement_at", "updated_at",
	).From(balancesTable).
		Where(squirrel.Eq{"variant_id": variantID, "location_id": locationID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Balance{VariantID: variantID, LocationID: locationID}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// GetBalanceForUpdate returns the balance with a pessimistic row lock.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, variantID, locationID id.ID) (stock.Balance, error) {
	var balance stock.Balance

	sql := `
		SELECT variant_id, location_id, quantity, last_movement_at, updated_at
		FROM stock_balances
		WHERE variant_id = $1 AND location_id = $2
		FOR UPDATE
	`

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, variantID, locationID); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Balance{VariantID: variantID, LocationID: locationID}, nil
		}
		return balance, fmt.Errorf("get balance for update: %w", err)
	}
	return balance, nil
}

// ApplyDelta atomically adds a signed delta to the cached balance.
func (r *StockRepo) ApplyDelta(ctx context.Context, variantID, locationID id.ID, delta types.Quantity) error {
	sql := `
		INSERT INTO stock_balances (variant_id, location_id, quantity, last_movement_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (variant_id, location_id)
		DO UPDATE SET
			quantity = stock_balances.quantity + EXCLUDED.quantity,
			last_movement_at = NOW(),
			updated_at = NOW()
	`

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, variantID, locationID, delta); err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	return nil
}

// BalancesByLocation returns all balances at one location.
func (r *StockRepo) BalancesByLocation(ctx context.Context, locationID id.ID) ([]stock.Balance, error) {
	q := r.builder.Select(
		"variant_id", "location_id", "quantity", "last_movement_at", "updated_at",
	).From(balancesTable).
		Where(squirrel.Eq{"location_id": locationID}).
		OrderBy("variant_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances by location: %w", err)
	}
	return balances, nil
}

// BalancesByVariant returns one variant's balances across locations.
func (r *StockRepo) BalancesByVariant(ctx context.Context, variantID id.ID) ([]stock.Balance, error) {
	q := r.builder.Select(
		"variant_id", "location_id", "quantity", "last_movement_at", "updated_at",
	).From(balancesTable).
		Where(squirrel.Eq{"variant_id": variantID}).
		OrderBy("location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances by variant: %w", err)
	}
	return balances, nil
}

// BalancesBelowThreshold returns pairs with quantity below threshold.
func (r *StockRepo) BalancesBelowThreshold(ctx context.Context, threshold types.Quantity) ([]stock.Balance, error) {
	q := r.builder.Select(
		"variant_id", "location_id", "quantity", "last_movement_at", "updated_at",
	).From(balancesTable).
		Where(squirrel.Lt{"quantity": threshold}).
		OrderBy("quantity", "variant_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select low balances: %w", err)
	}
	return balances, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
