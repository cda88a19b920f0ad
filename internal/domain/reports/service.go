// Package reports provides read-only aggregations over stock, sales
// and the party ledger.
package reports

import (
	"context"
	"sort"
	"time"

	"simbapos/internal/core/id"
	"simbapos/internal/core/types"
	"simbapos/internal/domain/ledger"
	"simbapos/internal/domain/sales"
	"simbapos/internal/domain/stock"
)

// CashierTotal aggregates one cashier's completed sales.
type CashierTotal struct {
	CashierID string      `json:"cashierId"`
	SaleCount int         `json:"saleCount"`
	Total     types.Money `json:"total"`
}

// LocationTotal aggregates one location's completed sales.
type LocationTotal struct {
	LocationID id.ID       `json:"locationId"`
	SaleCount  int         `json:"saleCount"`
	Total      types.Money `json:"total"`
}

// Service composes the domain services into reporting queries.
type Service struct {
	stock  *stock.Service
	sales  *sales.Service
	ledger *ledger.Service
}

// NewService creates the reports service.
func NewService(stockSvc *stock.Service, salesSvc *sales.Service, ledgerSvc *ledger.Service) *Service {
	return &Service{stock: stockSvc, sales: salesSvc, ledger: ledgerSvc}
}

// LowStock lists pairs at or below the given threshold, for reorder
// planning.
func (s *Service) LowStock(ctx context.Context, threshold types.Quantity) ([]stock.Balance, error) {
	return s.stock.LowStock(ctx, threshold)
}

// DaySummary aggregates one location's completed sales for a day.
func (s *Service) DaySummary(ctx context.Context, locationID id.ID, day time.Time) (*sales.DaySummary, error) {
	return s.sales.DaySummary(ctx, locationID, day)
}

// SalesByCashier groups completed sales in the filter window by
// cashier, largest total first.
func (s *Service) SalesByCashier(ctx context.Context, filter sales.ListFilter) ([]CashierTotal, error) {
	completed := sales.StatusCompleted
	filter.Status = &completed

	list, err := s.sales.ListSales(ctx, filter)
	if err != nil {
		return nil, err
	}

	byCashier := make(map[string]*CashierTotal)
	for _, sale := range list {
		t, ok := byCashier[sale.CashierID]
		if !ok {
			t = &CashierTotal{CashierID: sale.CashierID, Total: types.Zero()}
			byCashier[sale.CashierID] = t
		}
		t.SaleCount++
		t.Total = t.Total.Add(sale.Total)
	}

	out := make([]CashierTotal, 0, len(byCashier))
	for _, t := range byCashier {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out, nil
}

// SalesByLocation groups completed sales in the filter window by
// location, largest total first.
func (s *Service) SalesByLocation(ctx context.Context, filter sales.ListFilter) ([]LocationTotal, error) {
	completed := sales.StatusCompleted
	filter.Status = &completed

	list, err := s.sales.ListSales(ctx, filter)
	if err != nil {
		return nil, err
	}

	byLocation := make(map[id.ID]*LocationTotal)
	for _, sale := range list {
		t, ok := byLocation[sale.LocationID]
		if !ok {
			t = &LocationTotal{LocationID: sale.LocationID, Total: types.Zero()}
			byLocation[sale.LocationID] = t
		}
		t.SaleCount++
		t.Total = t.Total.Add(sale.Total)
	}

	out := make([]LocationTotal, 0, len(byLocation))
	for _, t := range byLocation {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out, nil
}

// TopDebtors returns customers owing the most.
func (s *Service) TopDebtors(ctx context.Context, limit int) ([]ledger.PartyBalance, error) {
	return s.ledger.TopDebtors(ctx, limit)
}
