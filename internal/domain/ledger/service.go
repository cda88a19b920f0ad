package ledger

import (
	"context"
	"time"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
	"simbapos/pkg/logger"
)

// Service provides ledger operations. Appends are pure inserts; there
// is no settlement matching, only running sums per party.
type Service struct {
	repo Repository
}

// NewService creates the ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append inserts one entry. The signed amount is taken as given; the
// caller is responsible for sign conventions. Joins the caller's
// transaction when one is in context.
func (s *Service) Append(ctx context.Context, e Entry) (*Entry, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}

	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	e.CreatedBy = user.UserID
	e.CreatedAt = time.Now().UTC()

	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "ledger entry appended",
		"party_type", string(e.PartyType),
		"party_id", e.PartyID,
		"entry_type", string(e.Type),
		"amount", e.Amount,
	)
	return &e, nil
}

// RecordPayment appends a payment entry, normalizing the sign: customer
// payments reduce customer debt (negative), supplier payments reduce our
// debt to the supplier (positive).
func (s *Service) RecordPayment(ctx context.Context, partyType PartyType, partyID id.ID, amount types.Money, note string) (*Entry, error) {
	if !partyType.Valid() {
		return nil, apperror.NewValidation("unknown party type: " + string(partyType))
	}
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive")
	}

	signed := amount
	if partyType == PartyCustomer {
		signed = amount.Neg()
	}

	return s.Append(ctx, Entry{
		PartyType: partyType,
		PartyID:   partyID,
		Amount:    signed,
		Type:      EntryPayment,
		RefType:   "payment",
		Note:      note,
	})
}

// Balance returns the party's outstanding balance: the signed sum of
// all its entries, zero for an unknown party.
func (s *Service) Balance(ctx context.Context, partyType PartyType, partyID id.ID) (types.Money, error) {
	if !partyType.Valid() {
		return types.Zero(), apperror.NewValidation("unknown party type: " + string(partyType))
	}
	if id.IsNil(partyID) {
		return types.Zero(), apperror.NewValidation("partyId is required")
	}
	return s.repo.SumByParty(ctx, partyType, partyID)
}

// Entries returns filtered ledger history, newest first.
func (s *Service) Entries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return s.repo.List(ctx, filter)
}

// TopDebtors returns customers owing the most, largest balance first.
func (s *Service) TopDebtors(ctx context.Context, limit int) ([]PartyBalance, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopDebtors(ctx, limit)
}
