package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"simbapos/internal/core/apperror"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/reports"
	"simbapos/internal/domain/sales"
)

// ReportsHandler exposes the aggregate reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	svc *reports.Service
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(svc *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

// SalesByCashier totals completed sales per cashier.
// GET /reports/sales-by-cashier?locationId=&from=&to=
func (h *ReportsHandler) SalesByCashier(c *gin.Context) {
	filter, ok := h.reportFilter(c)
	if !ok {
		return
	}

	totals, err := h.svc.SalesByCashier(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, totals)
}

// SalesByLocation totals completed sales per location.
// GET /reports/sales-by-location?from=&to=
func (h *ReportsHandler) SalesByLocation(c *gin.Context) {
	filter, ok := h.reportFilter(c)
	if !ok {
		return
	}

	totals, err := h.svc.SalesByLocation(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, totals)
}

// DaySummary aggregates one location's completed sales for one day.
// GET /reports/day-summary?locationId=&date=
func (h *ReportsHandler) DaySummary(c *gin.Context) {
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return
	}
	if locationID == nil {
		h.Error(c, apperror.NewValidation("locationId is required"))
		return
	}
	day := time.Now().UTC()
	if val := c.Query("date"); val != "" {
		parsed, err := parseDate(val)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid date").WithDetail("value", val))
			return
		}
		day = parsed
	}

	summary, err := h.svc.DaySummary(c.Request.Context(), *locationID, day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// LowStock lists balances at or below the threshold.
// GET /reports/low-stock?threshold=
func (h *ReportsHandler) LowStock(c *gin.Context) {
	threshold := types.Quantity(h.ParseIntQuery(c, "threshold", 10))

	balances, err := h.svc.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, balances)
}

// TopDebtors lists the customers owing the most.
// GET /reports/top-debtors?limit=
func (h *ReportsHandler) TopDebtors(c *gin.Context) {
	debtors, err := h.svc.TopDebtors(c.Request.Context(), h.ParseIntQuery(c, "limit", 10))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, debtors)
}

func (h *ReportsHandler) reportFilter(c *gin.Context) (sales.ListFilter, bool) {
	locationID, ok := h.QueryID(c, "locationId")
	if !ok {
		return sales.ListFilter{}, false
	}

	filter := sales.ListFilter{
		LocationID: locationID,
		Limit:      h.ParseIntQuery(c, "limit", 1000),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if val := c.Query("from"); val != "" {
		parsed, err := parseDate(val)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from").WithDetail("value", val))
			return sales.ListFilter{}, false
		}
		filter.DateFrom = &parsed
	}
	if val := c.Query("to"); val != "" {
		parsed, err := parseDate(val)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to").WithDetail("value", val))
			return sales.ListFilter{}, false
		}
		filter.DateTo = &parsed
	}
	return filter, true
}
