// Package ledger_repo provides the PostgreSQL implementation of the
// party ledger.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/ledger"
	"simbapos/internal/infrastructure/storage/postgres"
)

const entriesTable = "ledger_entries"

var entryColumns = []string{
	"id", "party_type", "party_id", "amount", "currency",
	"entry_type", "ref_type", "ref_id", "note",
	"created_by", "created_at",
}

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates the ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create appends one entry.
func (r *LedgerRepo) Create(ctx context.Context, e ledger.Entry) error {
	q := r.builder.Insert(entriesTable).Columns(entryColumns...).Values(
		e.ID, e.PartyType, e.PartyID, e.Amount, e.Currency,
		e.Type, e.RefType, e.RefID, e.Note,
		e.CreatedBy, e.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// SumByParty returns the signed sum of a party's entries, zero when the
// party has none.
func (r *LedgerRepo) SumByParty(ctx context.Context, partyType ledger.PartyType, partyID id.ID) (types.Money, error) {
	sql := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE party_type = $1 AND party_id = $2
	`

	var sum types.Money
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, partyType, partyID).Scan(&sum)
	if err == pgx.ErrNoRows {
		return types.Zero(), nil
	}
	if err != nil {
		return types.Zero(), fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

// List returns entries, newest first.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable)

	if filter.PartyType != nil {
		q = q.Where(squirrel.Eq{"party_type": *filter.PartyType})
	}
	if filter.PartyID != nil {
		q = q.Where(squirrel.Eq{"party_id": *filter.PartyID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"entry_type": *filter.Type})
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

	var entries []ledger.Entry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	return entries, nil
}

// TopDebtors returns customers with the largest positive balances.
func (r *LedgerRepo) TopDebtors(ctx context.Context, limit int) ([]ledger.PartyBalance, error) {
	sql := `
		SELECT party_type, party_id, SUM(amount) AS balance
		FROM ledger_entries
		WHERE party_type = $1
		GROUP BY party_type, party_id
		HAVING SUM(amount) > 0
		ORDER BY balance DESC
		LIMIT $2
	`

	var balances []ledger.PartyBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, ledger.PartyCustomer, limit); err != nil {
		return nil, fmt.Errorf("select top debtors: %w", err)
	}
	return balances, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
