// Package sequence provides domain contracts for monotonic counters.
// Implementations live in the infrastructure layer.
package sequence

import (
	"context"
)

// Generator issues monotonically increasing integers per named counter.
//
// Values are issued by a single atomic increment-and-fetch visible across
// all concurrent callers and all process instances. Once issued, a value
// is never reused, even if the consumer fails to persist it; callers that
// need gap-free numbering must detect duplicates and retry at a higher
// layer (see the barcode generation retry loop).
type Generator interface {
	// Next atomically increments the named counter and returns the new value.
	Next(ctx context.Context, counter string) (int64, error)

	// Current returns the last issued value, or 0 if the counter is absent.
	// Read-only.
	Current(ctx context.Context, counter string) (int64, error)
}

// DayCounter builds a date-scoped counter name, e.g. "sale_20260829".
// Daily counters restart numbering each calendar day because every day
// gets a fresh counter row.
func DayCounter(prefix, yyyymmdd string) string {
	return prefix + "_" + yyyymmdd
}
