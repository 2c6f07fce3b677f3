package service

import (
	"perpdesk/internal/domain"
	"perpdesk/internal/infra/storage"

	"github.com/google/uuid"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ListOrdersRequest narrows an order history query. Nil filters are ignored.
type ListOrdersRequest struct {
	MarketID *uuid.UUID
	Status   *domain.OrderStatus
	Page     int
	PerPage  int
}

// Pagination describes one page of results.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Data       []domain.Order `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ListOrders returns the caller's own orders, newest first. Cross-account
// reads are impossible at this layer: the predicate always includes the
// caller identity. per_page above the cap is silently capped; a page below 1
// is rejected.
func (s *TradingService) ListOrders(userID uuid.UUID, req ListOrdersRequest) (*OrderPage, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Page < 1 {
		return nil, domain.NewValidationError("page", "must be at least 1")
	}
	if req.PerPage <= 0 {
		req.PerPage = defaultPerPage
	}
	if req.PerPage > maxPerPage {
		req.PerPage = maxPerPage
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be pending, filled, cancelled or rejected")
	}

	orders, total, err := s.store.ListOrders(userID, storage.OrderFilter{
		MarketID: req.MarketID,
		Status:   req.Status,
		Offset:   (req.Page - 1) * req.PerPage,
		Limit:    req.PerPage,
	})
	if err != nil {
		return nil, err
	}

	totalPages := total / int64(req.PerPage)
	if total%int64(req.PerPage) != 0 {
		totalPages++
	}

	return &OrderPage{
		Data: orders,
		Pagination: Pagination{
			Page:       req.Page,
			PerPage:    req.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
