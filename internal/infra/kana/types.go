package kana

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is upstream market reference data as reported by the exchange.
type Market struct {
	Symbol          string          `json:"symbol"`
	BaseAsset       string          `json:"base_asset"`
	QuoteAsset      string          `json:"quote_asset"`
	Price           decimal.Decimal `json:"price"`
	FundingRate     decimal.Decimal `json:"funding_rate"`
	NextFundingTime time.Time       `json:"next_funding_time"`
	MinOrderSize    decimal.Decimal `json:"min_order_size"`
	MaxOrderSize    decimal.Decimal `json:"max_order_size"`
	TickSize        decimal.Decimal `json:"tick_size"`
	IsActive        bool            `json:"is_active"`
}

// OrderRequest is the upstream placement payload. Pure passthrough; the
// proxy makes no decisions.
type OrderRequest struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	OrderType  string           `json:"order_type"`
	Size       decimal.Decimal  `json:"size"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Leverage   *decimal.Decimal `json:"leverage,omitempty"`
	MarginType *string          `json:"margin_type,omitempty"`
}

// OrderResponse is the upstream acknowledgement of a placement.
type OrderResponse struct {
	OrderID        string           `json:"order_id"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	OrderType      string           `json:"order_type"`
	Size           decimal.Decimal  `json:"size"`
	Price          *decimal.Decimal `json:"price"`
	Status         string           `json:"status"`
	FilledQuantity decimal.Decimal  `json:"filled_quantity"`
	AveragePrice   *decimal.Decimal `json:"average_price"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Position is an open upstream position.
type Position struct {
	Symbol           string           `json:"symbol"`
	Side             string           `json:"side"`
	Size             decimal.Decimal  `json:"size"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	MarkPrice        decimal.Decimal  `json:"mark_price"`
	UnrealizedPnl    decimal.Decimal  `json:"unrealized_pnl"`
	RealizedPnl      decimal.Decimal  `json:"realized_pnl"`
	Margin           decimal.Decimal  `json:"margin"`
	Leverage         decimal.Decimal  `json:"leverage"`
	LiquidationPrice *decimal.Decimal `json:"liquidation_price"`
}

// FundingRate is the current funding rate for one symbol.
type FundingRate struct {
	Symbol      string          `json:"symbol"`
	FundingRate decimal.Decimal `json:"funding_rate"`
}
