package handlers

import (
	"github.com/gin-gonic/gin"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/domain/ledger"
	"simbapos/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes the party ledger endpoints.
type LedgerHandler struct {
	*BaseHandler
	svc *ledger.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

// RecordPayment registers a payment from or to a party.
// POST /ledger/payments
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	partyType := ledger.PartyType(req.PartyType)
	if !partyType.Valid() {
		h.Error(c, apperror.NewValidation("unknown party type: "+req.PartyType))
		return
	}
	partyID, err := id.Parse(req.PartyID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid partyId").WithDetail("value", req.PartyID))
		return
	}

	entry, err := h.svc.RecordPayment(c.Request.Context(), partyType, partyID, req.Amount, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, entry)
}

// Balance returns one party's running balance.
// GET /ledger/:partyType/:partyId/balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	partyType := ledger.PartyType(c.Param("partyType"))
	if !partyType.Valid() {
		h.Error(c, apperror.NewValidation("unknown party type: "+c.Param("partyType")))
		return
	}
	partyID, ok := h.ParamID(c, "partyId")
	if !ok {
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), partyType, partyID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{
		"partyType": partyType,
		"partyId":   partyID,
		"balance":   balance,
	})
}

// Entries lists ledger entries matching the filter, newest first.
// GET /ledger/entries?partyType=&partyId=&type=&limit=&offset=
func (h *LedgerHandler) Entries(c *gin.Context) {
	filter := ledger.EntryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if pt := c.Query("partyType"); pt != "" {
		partyType := ledger.PartyType(pt)
		if !partyType.Valid() {
			h.Error(c, apperror.NewValidation("unknown party type: "+pt))
			return
		}
		filter.PartyType = &partyType
	}
	partyID, ok := h.QueryID(c, "partyId")
	if !ok {
		return
	}
	filter.PartyID = partyID
	if et := c.Query("type"); et != "" {
		entryType := ledger.EntryType(et)
		if !entryType.Valid() {
			h.Error(c, apperror.NewValidation("unknown entry type: "+et))
			return
		}
		filter.Type = &entryType
	}

	entries, err := h.svc.Entries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}
