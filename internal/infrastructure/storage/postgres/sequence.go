package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"simbapos/internal/core/sequence"
)

// SequenceStore implements sequence.Generator on a single counter
// table. The increment is one atomic UPSERT, so concurrent callers on
// the same counter serialize on the row and never see the same value.
type SequenceStore struct {
	txm *TxManager
}

// NewSequenceStore creates the sequence store.
func NewSequenceStore(txm *TxManager) *SequenceStore {
	return &SequenceStore{txm: txm}
}

// Next atomically increments the counter and returns the new value.
// The counter row is created on first use.
func (s *SequenceStore) Next(ctx context.Context, counter string) (int64, error) {
	sql := `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key)
		DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`

	var val int64
	querier := s.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, counter).Scan(&val); err != nil {
		return 0, fmt.Errorf("next sequence value %q: %w", counter, err)
	}
	return val, nil
}

// Current returns the last issued value, 0 for an unknown counter.
func (s *SequenceStore) Current(ctx context.Context, counter string) (int64, error) {
	sql := `SELECT current_val FROM sys_sequences WHERE key = $1`

	var val int64
	querier := s.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, counter).Scan(&val)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current sequence value %q: %w", counter, err)
	}
	return val, nil
}

var _ sequence.Generator = (*SequenceStore)(nil)
