package service

import (
	"sort"
	"time"

	"perpdesk/internal/domain"

	"github.com/google/uuid"
)

// DefaultBookDepth is the number of price levels returned when the caller
// does not ask for a specific depth.
const DefaultBookDepth = 20

// GetOrderBook builds a depth-limited bid/ask snapshot for a market from
// currently resting orders.
//
// The two sides are loaded independently, so the snapshot is a best-effort
// view and may interleave with concurrent placements. depth limits the order
// scan before grouping: a level made of many small orders near the best price
// can under-report its true size. An empty side yields an empty slice, never
// an error; the snapshot is always two-sided or absent.
func (s *TradingService) GetOrderBook(marketID uuid.UUID, depth int) (*domain.OrderBook, error) {
	market, err := s.store.GetMarket(marketID)
	if err != nil {
		return nil, err
	}
	if !market.IsActive {
		return nil, domain.ErrMarketInactive
	}

	if depth <= 0 {
		depth = DefaultBookDepth
	}

	bidOrders, err := s.store.RestingOrders(market.ID, domain.SideBuy, depth)
	if err != nil {
		return nil, err
	}
	askOrders, err := s.store.RestingOrders(market.ID, domain.SideSell, depth)
	if err != nil {
		return nil, err
	}

	bids, err := aggregateLevels(bidOrders)
	if err != nil {
		return nil, err
	}
	asks, err := aggregateLevels(askOrders)
	if err != nil {
		return nil, err
	}

	// Grouping does not preserve order; re-sort each side.
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Price.GreaterThan(bids[j].Price)
	})
	sort.Slice(asks, func(i, j int) bool {
		return asks[i].Price.LessThan(asks[j].Price)
	})

	return &domain.OrderBook{
		MarketID:    market.ID,
		Bids:        bids,
		Asks:        asks,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// aggregateLevels groups resting orders by exact price and sums the unfilled
// remainder per level. Unpriced and fully filled rows never reach here via
// the store query, but IsResting guards against externally mutated rows.
func aggregateLevels(orders []domain.Order) ([]domain.BookLevel, error) {
	byPrice := make(map[string]*domain.BookLevel, len(orders))
	for i := range orders {
		o := &orders[i]
		if !o.IsResting() {
			continue
		}
		if err := o.CheckFillInvariant(); err != nil {
			return nil, err
		}

		key := o.Price.String()
		level, ok := byPrice[key]
		if !ok {
			level = &domain.BookLevel{Price: *o.Price}
			byPrice[key] = level
		}
		level.Quantity = level.Quantity.Add(o.RestingQuantity())
	}

	levels := make([]domain.BookLevel, 0, len(byPrice))
	for _, level := range byPrice {
		level.Total = level.Price.Mul(level.Quantity)
		levels = append(levels, *level)
	}
	return levels, nil
}
