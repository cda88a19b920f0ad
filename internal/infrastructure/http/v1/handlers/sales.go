package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"simbapos/internal/core/apperror"
	"simbapos/internal/domain/sales"
	"simbapos/internal/infrastructure/http/v1/dto"
)

// SalesHandler exposes the sale and cash closing endpoints.
type SalesHandler struct {
	*BaseHandler
	svc *sales.Service
}

// NewSalesHandler creates a sales handler.
func NewSalesHandler(svc *sales.Service) *SalesHandler {
	return &SalesHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

// Create registers a completed sale.
// POST /sales
func (h *SalesHandler) Create(c *gin.Context) {
	var req sales.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.svc.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, sale)
}

// Get returns one sale with its items.
// GET /sales/:id
func (h *SalesHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	sale, err := h.svc.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// GetByNo returns one sale by its document number.
// GET /sales/by-no/:saleNo
func (h *SalesHandler) GetByNo(c *gin.Context) {
	sale, err := h.svc.GetSaleByNo(c.Request.Context(), c.Param("saleNo"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// List returns sales matching the filter, newest first.
// GET /sales?locationId=&cashierId=&status=&from=&to=&limit=&offset=
func (h *SalesHandler) List(c *gin.Context) {
	filter, ok := h.saleFilter(c)
	if !ok {
		return
	}

	list, err := h.svc.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// Void reverses a completed sale.
// POST /sales/:id/void
func (h *SalesHandler) Void(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.svc.VoidSale(c.Request.Context(), saleID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// CreateCashClosing reconciles the cash drawer at end of day.
// POST /cash-closings
func (h *SalesHandler) CreateCashClosing(c *gin.Context) {
	var req sales.CashClosingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	closing, err := h.svc.CreateCashClosing(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, closing)
}

// ListCashClosings returns closings matching the filter.
// GET /cash-closings?locationId=&from=&to=&limit=&offset=
func (h *SalesHandler) ListCashClosings(c *gin.Context) {
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return
	}
	from, ok := h.optionalDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.optionalDateQuery(c, "to")
	if !ok {
		return
	}

	closings, err := h.svc.CashClosings(c.Request.Context(), sales.ClosingFilter{
		LocationID: locationID,
		DateFrom:   from,
		DateTo:     to,
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, closings)
}

func (h *SalesHandler) saleFilter(c *gin.Context) (sales.ListFilter, bool) {
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return sales.ListFilter{}, false
	}
	from, ok := h.optionalDateQuery(c, "from")
	if !ok {
		return sales.ListFilter{}, false
	}
	to, ok := h.optionalDateQuery(c, "to")
	if !ok {
		return sales.ListFilter{}, false
	}

	filter := sales.ListFilter{
		LocationID: locationID,
		DateFrom:   from,
		DateTo:     to,
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if cashier := c.Query("cashierId"); cashier != "" {
		filter.CashierID = &cashier
	}
	if status := c.Query("status"); status != "" {
		st := sales.Status(status)
		if !st.Valid() {
			h.Error(c, apperror.NewValidation("unknown sale status: "+status))
			return sales.ListFilter{}, false
		}
		filter.Status = &st
	}
	return filter, true
}

func (h *SalesHandler) optionalDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	t, err := parseDate(val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key).WithDetail("value", val))
		return nil, false
	}
	return &t, true
}

func parseDate(val string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, val)
}
