// Package sales_repo provides the PostgreSQL implementation of sale
// and cash closing persistence.
package sales_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/sales"
	"simbapos/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"
)

var saleColumns = []string{
	"id", "sale_no", "location_id", "cashier_id",
	"subtotal", "discount", "total", "payment_method",
	"breakdown_cash", "breakdown_card", "breakdown_transfer",
	"customer_id", "paid_amount", "remaining_debt",
	"status", "voided_by", "void_reason", "note",
	"created_at", "updated_at",
}

var saleItemColumns = []string{
	"id", "sale_id", "variant_id", "product_name",
	"quantity", "unit_price", "discount", "total",
}

// saleRow adds the flattened payment breakdown columns to the sale.
type saleRow struct {
	sales.Sale
	BreakdownCash     *types.Money `db:"breakdown_cash"`
	BreakdownCard     *types.Money `db:"breakdown_card"`
	BreakdownTransfer *types.Money `db:"breakdown_transfer"`
}

func (row *saleRow) toSale() sales.Sale {
	s := row.Sale
	if row.BreakdownCash != nil || row.BreakdownCard != nil || row.BreakdownTransfer != nil {
		b := sales.PaymentBreakdown{
			Cash:     types.Zero(),
			Card:     types.Zero(),
			Transfer: types.Zero(),
		}
		if row.BreakdownCash != nil {
			b.Cash = *row.BreakdownCash
		}
		if row.BreakdownCard != nil {
			b.Card = *row.BreakdownCard
		}
		if row.BreakdownTransfer != nil {
			b.Transfer = *row.BreakdownTransfer
		}
		s.PaymentBreakdown = &b
	}
	return s
}

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSaleRepo creates the sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the sale header and all items.
func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	var bCash, bCard, bTransfer *types.Money
	if sale.PaymentBreakdown != nil {
		bCash = &sale.PaymentBreakdown.Cash
		bCard = &sale.PaymentBreakdown.Card
		bTransfer = &sale.PaymentBreakdown.Transfer
	}

	q := r.builder.Insert(salesTable).Columns(saleColumns...).Values(
		sale.ID, sale.SaleNo, sale.LocationID, sale.CashierID,
		sale.Subtotal, sale.Discount, sale.Total, sale.PaymentMethod,
		bCash, bCard, bTransfer,
		sale.CustomerID, sale.PaidAmount, sale.RemainingDebt,
		sale.Status, sale.VoidedBy, sale.VoidReason, sale.Note,
		sale.CreatedAt, sale.UpdatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build sale insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("sale", "sale_no", sale.SaleNo)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	if len(sale.Items) == 0 {
		return nil
	}

	iq := r.builder.Insert(saleItemsTable).Columns(saleItemColumns...)
	for _, item := range sale.Items {
		iq = iq.Values(
			item.ID, sale.ID, item.VariantID, item.ProductName,
			item.Quantity, item.UnitPrice, item.Discount, item.Total,
		)
	}

	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale items: %w", err)
	}
	return nil
}

// GetByID loads a sale with its items.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.getOne(ctx, squirrel.Eq{"id": saleID}, saleID)
}

// GetBySaleNo loads a sale with its items by business number.
func (r *SaleRepo) GetBySaleNo(ctx context.Context, saleNo string) (*sales.Sale, error) {
	return r.getOne(ctx, squirrel.Eq{"sale_no": saleNo}, saleNo)
}

func (r *SaleRepo) getOne(ctx context.Context, where squirrel.Eq, ident any) (*sales.Sale, error) {
	q := r.builder.Select(saleColumns...).From(salesTable).Where(where).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row saleRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", ident)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	sale := row.toSale()
	items, err := r.loadItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (r *SaleRepo) loadItems(ctx context.Context, saleID id.ID) ([]sales.Item, error) {
	q := r.builder.Select(saleItemColumns...).From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sales.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select sale items: %w", err)
	}
	return items, nil
}

// MarkVoided updates the void fields of a sale.
func (r *SaleRepo) MarkVoided(ctx context.Context, sale *sales.Sale) error {
	q := r.builder.Update(salesTable).
		Set("status", sale.Status).
		Set("voided_by", sale.VoidedBy).
		Set("void_reason", sale.VoidReason).
		Set("updated_at", sale.UpdatedAt).
		Where(squirrel.Eq{"id": sale.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", sale.ID)
	}
	return nil
}

// List returns sale headers, newest first. Items are not loaded.
func (r *SaleRepo) List(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, error) {
	q := r.builder.Select(saleColumns...).From(salesTable)

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.CashierID != nil {
		q = q.Where(squirrel.Eq{"cashier_id": *filter.CashierID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.DateTo})
	}

	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectSales(ctx, q)
}

// ListCompletedBetween returns completed sales of one location in
// [from, to), with payment breakdowns populated.
func (r *SaleRepo) ListCompletedBetween(ctx context.Context, locationID id.ID, from, to time.Time) ([]sales.Sale, error) {
	q := r.builder.Select(saleColumns...).From(salesTable).
		Where(squirrel.Eq{"location_id": locationID, "status": sales.StatusCompleted}).
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		OrderBy("created_at")

	return r.selectSales(ctx, q)
}

func (r *SaleRepo) selectSales(ctx context.Context, q squirrel.SelectBuilder) ([]sales.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []saleRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}

	out := make([]sales.Sale, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toSale())
	}
	return out, nil
}

// Ensure interface compliance.
var _ sales.Repository = (*SaleRepo)(nil)
