package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"perpdesk/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the durable order and market store. It is passed explicitly to
// every consumer; tests construct their own instance over a throwaway file.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path and migrates the schema.
func NewStorage(path string) (*Storage, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Market{}, &domain.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Market Operations (read-only to the order subsystem, seeded at bootstrap)
// ======================================================================================

// GetMarket retrieves a market by id.
func (s *Storage) GetMarket(id uuid.UUID) (*domain.Market, error) {
	var market domain.Market
	err := s.db.First(&market, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMarketNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get_market", err)
	}
	return &market, nil
}

// GetMarketBySymbol retrieves a market by its unique symbol.
func (s *Storage) GetMarketBySymbol(symbol string) (*domain.Market, error) {
	var market domain.Market
	err := s.db.First(&market, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMarketNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get_market_by_symbol", err)
	}
	return &market, nil
}

// ListMarkets retrieves all markets ordered by symbol.
func (s *Storage) ListMarkets() ([]domain.Market, error) {
	var markets []domain.Market
	if err := s.db.Order("symbol asc").Find(&markets).Error; err != nil {
		return nil, domain.NewStorageError("list_markets", err)
	}
	return markets, nil
}

// SeedMarkets inserts the given markets if the table is empty.
// Returns the number of rows inserted.
func (s *Storage) SeedMarkets(markets []domain.Market) (int, error) {
	var count int64
	if err := s.db.Model(&domain.Market{}).Count(&count).Error; err != nil {
		return 0, domain.NewStorageError("count_markets", err)
	}
	if count > 0 {
		return 0, nil
	}
	for i := range markets {
		if markets[i].ID == uuid.Nil {
			markets[i].ID = uuid.New()
		}
	}
	if err := s.db.Create(&markets).Error; err != nil {
		return 0, domain.NewStorageError("seed_markets", err)
	}
	return len(markets), nil
}

// UpdateMarketIcon records the local icon path for a market.
func (s *Storage) UpdateMarketIcon(id uuid.UUID, path string) error {
	err := s.db.Model(&domain.Market{}).Where("id = ?", id).Update("icon_path", path).Error
	if err != nil {
		return domain.NewStorageError("update_market_icon", err)
	}
	return nil
}

// ======================================================================================
// Order Operations
// ======================================================================================

// InsertOrder persists a new order row. This is the only path that creates orders.
func (s *Storage) InsertOrder(order *domain.Order) error {
	if err := s.db.Create(order).Error; err != nil {
		return domain.NewStorageError("insert_order", err)
	}
	return nil
}

// GetOrder retrieves an order by id, scoped to its owner. A miss and an
// ownership miss are indistinguishable to the caller.
func (s *Storage) GetOrder(id, userID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := s.db.First(&order, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get_order", err)
	}
	return &order, nil
}

// RestingOrders loads up to limit pending priced orders for one side of a
// market, best price first (bids descending, asks ascending).
//
// The limit applies to the order scan, not to aggregated levels: a price level
// made of more than limit small orders under-reports its true depth.
func (s *Storage) RestingOrders(marketID uuid.UUID, side domain.OrderSide, limit int) ([]domain.Order, error) {
	direction := "price asc"
	if side == domain.SideBuy {
		direction = "price desc"
	}

	var orders []domain.Order
	err := s.db.
		Where("market_id = ? AND side = ? AND status = ? AND price IS NOT NULL", marketID, side, domain.OrderStatusPending).
		Where("filled_quantity < quantity").
		Order(direction).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, domain.NewStorageError("load_resting_orders", err)
	}
	return orders, nil
}

// OrderFilter narrows ListOrders. Nil fields are ignored.
type OrderFilter struct {
	MarketID *uuid.UUID
	Status   *domain.OrderStatus
	Offset   int
	Limit    int
}

// ListOrders returns one page of a user's orders, newest first, plus the total
// row count for the same predicate.
func (s *Storage) ListOrders(userID uuid.UUID, filter OrderFilter) ([]domain.Order, int64, error) {
	query := s.db.Model(&domain.Order{}).Where("user_id = ?", userID)
	if filter.MarketID != nil {
		query = query.Where("market_id = ?", *filter.MarketID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewStorageError("count_orders", err)
	}

	var orders []domain.Order
	err := query.
		Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, domain.NewStorageError("list_orders", err)
	}
	return orders, total, nil
}

// ApplyFill records fill progress asserted by the external settlement
// process. filled_quantity never decreases and never exceeds quantity; the
// average price is volume-weighted across partial fills, and a fill that
// completes the order also moves it to filled. Terminal rows reject fills.
func (s *Storage) ApplyFill(id, userID uuid.UUID, fillQty, fillPrice decimal.Decimal) (*domain.Order, error) {
	order, err := s.GetOrder(id, userID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending {
		return nil, domain.ErrInvalidTransition
	}
	if !fillQty.IsPositive() {
		return nil, domain.ErrInvariantViolation
	}

	newFilled := order.FilledQuantity.Add(fillQty)
	if newFilled.GreaterThan(order.Quantity) {
		return nil, domain.ErrInvariantViolation
	}

	avg := fillPrice
	if order.AveragePrice != nil && order.FilledQuantity.IsPositive() {
		notional := order.AveragePrice.Mul(order.FilledQuantity).Add(fillPrice.Mul(fillQty))
		avg = notional.Div(newFilled)
	}

	order.FilledQuantity = newFilled
	order.AveragePrice = &avg
	order.UpdatedAt = time.Now().UTC()
	if newFilled.Equal(order.Quantity) {
		order.Status = domain.OrderStatusFilled
	}

	if err := s.db.Save(order).Error; err != nil {
		return nil, domain.NewStorageError("apply_fill", err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order through the status state machine. Terminal
// rows are immutable; an illegal move fails with ErrInvalidTransition and
// writes nothing. Transitioning to filled completes the fill quantity so the
// filled-implies-fully-filled invariant holds.
func (s *Storage) UpdateOrderStatus(id, userID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.GetOrder(id, userID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransition(next) {
		return nil, domain.ErrInvalidTransition
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	if next == domain.OrderStatusFilled {
		order.FilledQuantity = order.Quantity
	}

	if err := s.db.Save(order).Error; err != nil {
		return nil, domain.NewStorageError("update_order_status", err)
	}
	return order, nil
}
