// Package audit defines the audit-log sink contract.
// The core emits entries and never reads them back; the PostgreSQL
// implementation lives in the infrastructure layer.
package audit

import (
	"context"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate           Action = "create"
	ActionVoid             Action = "void"
	ActionDelete           Action = "delete"
	ActionPayment          Action = "payment"
	ActionGenerateBarcode  Action = "generate_internal"
	ActionSetPrimary       Action = "set_primary"
	ActionStocktakeStart   Action = "stocktake_start"
	ActionStocktakeFinal   Action = "stocktake_finalize"
	ActionCashClosing      Action = "cash_closing"
)

// Entry is a single audit record.
// OldValue/NewValue carry entity snapshots and are serialized by the sink.
type Entry struct {
	EntityType string
	EntityID   string
	Action     Action
	ActorID    string
	OldValue   any
	NewValue   any
	Note       string
}

// Sink records audit entries. Recording is best-effort from the caller's
// perspective: a failed write must be logged, never propagated into the
// primary operation.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// NopSink discards all entries. Used in tests.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(ctx context.Context, entry Entry) error { return nil }

var _ Sink = NopSink{}
