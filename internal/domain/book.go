package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookLevel is one aggregated price level on one side of the book.
// Total is price * quantity in the quote asset.
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// OrderBook is a depth-limited bid/ask snapshot for one market.
//
// The snapshot is built from two independent reads and is not transactionally
// consistent with any single instant; concurrent placements and cancellations
// may be reflected partially. Callers must treat it as approximately current.
type OrderBook struct {
	MarketID    uuid.UUID   `json:"market_id"`
	Bids        []BookLevel `json:"bids"`
	Asks        []BookLevel `json:"asks"`
	LastUpdated time.Time   `json:"last_updated"`
}
