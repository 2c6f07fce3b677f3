package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Market is trading reference data for one symbol. Rows are seeded by an
// administrative process and are read-only to the order subsystem.
type Market struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol       string          `gorm:"uniqueIndex;type:varchar(32)" json:"symbol"`
	BaseAsset    string          `gorm:"type:varchar(16)" json:"base_asset"`
	QuoteAsset   string          `gorm:"type:varchar(16)" json:"quote_asset"`
	MinOrderSize decimal.Decimal `gorm:"type:decimal(32,16)" json:"min_order_size"`
	MaxOrderSize decimal.Decimal `gorm:"type:decimal(32,16)" json:"max_order_size"`
	TickSize     decimal.Decimal `gorm:"type:decimal(32,16)" json:"tick_size"`
	IsActive     bool            `gorm:"index" json:"is_active"`
	IconPath     string          `json:"icon_path,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// QuantityInBounds reports whether q lies within [MinOrderSize, MaxOrderSize].
// Both bounds are inclusive.
func (m *Market) QuantityInBounds(q decimal.Decimal) bool {
	return q.GreaterThanOrEqual(m.MinOrderSize) && q.LessThanOrEqual(m.MaxOrderSize)
}

// PriceAligned reports whether p is an exact multiple of the tick size.
func (m *Market) PriceAligned(p decimal.Decimal) bool {
	if m.TickSize.IsZero() {
		return true
	}
	return p.Mod(m.TickSize).IsZero()
}
