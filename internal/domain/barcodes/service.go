package barcodes

import (
	"context"
	"fmt"
	"time"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/id"
	"simbapos/internal/core/sequence"
	"simbapos/internal/core/tx"
	"simbapos/internal/domain/audit"
	"simbapos/internal/domain/catalog"
	"simbapos/pkg/logger"
)

const (
	internalCounter = "internal_barcode"
	internalFormat  = "SIMBA-%08d"

	// Generation retries on value collision before giving up. Collisions
	// only happen when an operator registered a SIMBA-prefixed value by
	// hand, so a couple of retries normally suffice.
	maxGenerateAttempts = 10
)

// Service manages barcode registration, lookup and internal code
// generation.
type Service struct {
	repo    Repository
	catalog catalog.Lookup
	seq     sequence.Generator
	audit   audit.Sink
	txm     tx.Manager
}

// NewService creates the barcode service.
func NewService(repo Repository, catalogLookup catalog.Lookup, seq sequence.Generator, sink audit.Sink, txm tx.Manager) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogLookup,
		seq:     seq,
		audit:   sink,
		txm:     txm,
	}
}

// Create registers a manufacturer barcode for a variant.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Barcode, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetVariant(ctx, req.VariantID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByValue(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewDuplicate("barcode", "value", req.Value)
	}

	b := &Barcode{
		ID:        id.New(),
		Value:     req.Value,
		Type:      req.Type,
		VariantID: req.VariantID,
		IsPrimary: req.IsPrimary,
		CreatedBy: user.UserID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if b.IsPrimary {
			if err := s.repo.ClearPrimary(ctx, b.VariantID); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, b.ID.String(), audit.ActionCreate, user.UserID, b, "")
	return b, nil
}

// GenerateInternal allocates the next internal code for a variant that
// has none yet. The sequence value is claimed before the insert; if the
// value collides with a manually registered code the claimed number is
// abandoned and the next one is tried.
func (s *Service) GenerateInternal(ctx context.Context, variantID id.ID) (*Barcode, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}
	if id.IsNil(variantID) {
		return nil, apperror.NewValidation("variantId is required")
	}
	if _, err := s.catalog.GetVariant(ctx, variantID); err != nil {
		return nil, err
	}

	hasInternal, err := s.repo.HasInternal(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if hasInternal {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"variant already has an internal barcode")
	}

	existing, err := s.repo.ListByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	primary := true
	for _, b := range existing {
		if b.IsPrimary {
			primary = false
			break
		}
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		n, err := s.seq.Next(ctx, internalCounter)
		if err != nil {
			return nil, err
		}

		b := &Barcode{
			ID:        id.New(),
			Value:     fmt.Sprintf(internalFormat, n),
			Type:      TypeInternal,
			VariantID: variantID,
			IsPrimary: primary,
			CreatedBy: user.UserID,
			CreatedAt: time.Now().UTC(),
		}

		err = s.repo.Create(ctx, b)
		if apperror.IsDuplicate(err) {
			logger.Warn(ctx, "internal barcode collision, retrying",
				"value", b.Value,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.recordAudit(ctx, b.ID.String(), audit.ActionGenerateBarcode, user.UserID, b, "")

		logger.Info(ctx, "internal barcode generated",
			"variant_id", variantID,
			"value", b.Value,
		)
		return b, nil
	}

	return nil, apperror.NewConflict("could not allocate a unique internal barcode")
}

// Lookup resolves a scanned value to its barcode and variant.
func (s *Service) Lookup(ctx context.Context, value string) (*Barcode, *catalog.Variant, error) {
	if value == "" {
		return nil, nil, apperror.NewValidation("value is required")
	}

	b, err := s.repo.GetByValue(ctx, value)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, apperror.NewNotFound("barcode", value)
	}

	variant, err := s.catalog.GetVariant(ctx, b.VariantID)
	if err != nil {
		return nil, nil, err
	}
	return b, variant, nil
}

// ListByVariant returns all barcodes of a variant.
func (s *Service) ListByVariant(ctx context.Context, variantID id.ID) ([]Barcode, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewValidation("variantId is required")
	}
	return s.repo.ListByVariant(ctx, variantID)
}

// SetPrimary marks one barcode as the variant's primary, unsetting the
// previous primary in the same transaction.
func (s *Service) SetPrimary(ctx context.Context, barcodeID id.ID) (*Barcode, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("missing user context")
	}

	b, err := s.repo.GetByID(ctx, barcodeID)
	if err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.ClearPrimary(ctx, b.VariantID); err != nil {
			return err
		}
		return s.repo.SetPrimary(ctx, b.ID)
	})
	if err != nil {
		return nil, err
	}

	b.IsPrimary = true
	s.recordAudit(ctx, b.ID.String(), audit.ActionSetPrimary, user.UserID, b, "")
	return b, nil
}

// Remove deletes one barcode.
func (s *Service) Remove(ctx context.Context, barcodeID id.ID) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("missing user context")
	}

	b, err := s.repo.GetByID(ctx, barcodeID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, barcodeID); err != nil {
		return err
	}

	s.recordAudit(ctx, barcodeID.String(), audit.ActionDelete, user.UserID, b, "")
	return nil
}

func (s *Service) recordAudit(ctx context.Context, entityID string, action audit.Action, actorID string, val any, note string) {
	err := s.audit.Record(ctx, audit.Entry{
		EntityType: "barcode",
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		NewValue:   val,
		Note:       note,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed",
			"entity_type", "barcode",
			"entity_id", entityID,
			"error", err,
		)
	}
}
