package sales_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"simbapos/internal/domain/sales"
	"simbapos/internal/infrastructure/storage/postgres"
)

const closingsTable = "cash_closings"

var closingColumns = []string{
	"id", "location_id", "user_id", "closing_date",
	"expected_cash", "counted_cash", "difference",
	"difference_reason", "note", "created_at",
}

// ClosingRepo implements sales.ClosingRepository.
type ClosingRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewClosingRepo creates the cash closing repository.
func NewClosingRepo(txm *postgres.TxManager) *ClosingRepo {
	return &ClosingRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a closing record.
func (r *ClosingRepo) Create(ctx context.Context, c *sales.CashClosing) error {
	q := r.builder.Insert(closingsTable).Columns(closingColumns...).Values(
		c.ID, c.LocationID, c.UserID, c.Date,
		c.ExpectedCash, c.CountedCash, c.Difference,
		c.DifferenceReason, c.Note, c.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert cash closing: %w", err)
	}
	return nil
}

// List returns closings, newest first.
func (r *ClosingRepo) List(ctx context.Context, filter sales.ClosingFilter) ([]sales.CashClosing, error) {
	q := r.builder.Select(closingColumns...).From(closingsTable)

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"closing_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"closing_date": *filter.DateTo})
	}

	q = q.OrderBy("closing_date DESC")
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

	var closings []sales.CashClosing
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &closings, sql, args...); err != nil {
		return nil, fmt.Errorf("select cash closings: %w", err)
	}
	return closings, nil
}

// Ensure interface compliance.
var _ sales.ClosingRepository = (*ClosingRepo)(nil)
