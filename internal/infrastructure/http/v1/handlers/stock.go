package handlers

import (
	"github.com/gin-gonic/gin"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/id"
	"simbapos/internal/domain/stock"
	"simbapos/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes the stock operation endpoints.
type StockHandler struct {
	*BaseHandler
	svc *stock.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(svc *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

// Receive posts a goods receipt.
// POST /stock/receipts
func (h *StockHandler) Receive(c *gin.Context) {
	var req stock.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Receive(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, result)
}

// Transfer posts an inter-location transfer.
// POST /stock/transfers
func (h *StockHandler) Transfer(c *gin.Context) {
	var req stock.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Transfer(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, result)
}

// Adjust posts manual stock corrections.
// POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	var req stock.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Adjust(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, result)
}

// StartStocktake freezes a baseline counting sheet for a location.
// POST /stock/stocktakes
func (h *StockHandler) StartStocktake(c *gin.Context) {
	var req dto.StocktakeStartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId").WithDetail("value", req.LocationID))
		return
	}

	snapshot, err := h.svc.StartStocktake(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, snapshot)
}

// FinalizeStocktake reconciles counted quantities against system balances.
// POST /stock/stocktakes/finalize
func (h *StockHandler) FinalizeStocktake(c *gin.Context) {
	var req stock.StocktakeFinalizeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.FinalizeStocktake(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, result)
}

// Quantity returns the on-hand quantity of one variant at one location.
// GET /stock/quantity?variantId=&locationId=
func (h *StockHandler) Quantity(c *gin.Context) {
	variantID, ok := h.QueryID(c, "variantId")
	if !ok {
		return
	}
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return
	}
	if variantID == nil || locationID == nil {
		h.Error(c, apperror.NewValidation("variantId and locationId are required"))
		return
	}

	qty, err := h.svc.Quantity(c.Request.Context(), *variantID, *locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"variantId": variantID, "locationId": locationID, "quantity": qty})
}

// ByLocation lists balances at one location.
// GET /stock/locations/:locationId
func (h *StockHandler) ByLocation(c *gin.Context) {
	locationID, ok := h.ParamID(c, "locationId")
	if !ok {
		return
	}

	balances, err := h.svc.StockByLocation(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, balances)
}

// ByVariant lists balances of one variant across locations.
// GET /stock/variants/:variantId
func (h *StockHandler) ByVariant(c *gin.Context) {
	variantID, ok := h.ParamID(c, "variantId")
	if !ok {
		return
	}

	balances, err := h.svc.StockByVariant(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, balances)
}

// Movements lists ledger rows, newest first.
// GET /stock/movements?variantId=&locationId=&type=&limit=&offset=
func (h *StockHandler) Movements(c *gin.Context) {
	variantID, ok := h.QueryID(c, "variantId")
	if !ok {
		return
	}
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return
	}

	filter := stock.MovementFilter{
		VariantID:  variantID,
		LocationID: locationID,
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if t := c.Query("type"); t != "" {
		mt := stock.MovementType(t)
		if !mt.Valid() {
			h.Error(c, apperror.NewValidation("unknown movement type: "+t))
			return
		}
		filter.Type = &mt
	}

	movements, err := h.svc.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movements)
}

// MovementsByReference lists all rows linked to one document.
// GET /stock/movements/:refType/:refId
func (h *StockHandler) MovementsByReference(c *gin.Context) {
	movements, err := h.svc.MovementsByReference(c.Request.Context(), c.Param("refType"), c.Param("refId"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movements)
}
