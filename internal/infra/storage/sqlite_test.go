package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"perpdesk/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(&domain.Market{}, &domain.Order{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	return &Storage{db: db}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testMarket(t *testing.T, s *Storage, symbol string, active bool) *domain.Market {
	t.Helper()
	market := &domain.Market{
		ID:           uuid.New(),
		Symbol:       symbol,
		BaseAsset:    "BTC",
		QuoteAsset:   "USDT",
		MinOrderSize: dec("0.1"),
		MaxOrderSize: dec("1000"),
		TickSize:     dec("0.01"),
		IsActive:     active,
	}
	if err := s.db.Create(market).Error; err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

func testOrder(t *testing.T, s *Storage, marketID, userID uuid.UUID, side domain.OrderSide, price, qty, filled string, status domain.OrderStatus) *domain.Order {
	t.Helper()
	var p *decimal.Decimal
	if price != "" {
		d := dec(price)
		p = &d
	}
	order := &domain.Order{
		ID:             uuid.New(),
		UserID:         userID,
		MarketID:       marketID,
		OrderType:      domain.OrderTypeLimit,
		Side:           side,
		Quantity:       dec(qty),
		Price:          p,
		Status:         status,
		FilledQuantity: dec(filled),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.InsertOrder(order); err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}
	return order
}

func TestGetMarket(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)

	fetched, err := s.GetMarket(market.ID)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if fetched.Symbol != "BTC/USDT" {
		t.Errorf("expected symbol BTC/USDT, got %s", fetched.Symbol)
	}

	_, err = s.GetMarket(uuid.New())
	if !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestGetMarketBySymbol(t *testing.T) {
	s := setupTestDB(t)
	testMarket(t, s, "ETH/USDT", true)

	fetched, err := s.GetMarketBySymbol("ETH/USDT")
	if err != nil {
		t.Fatalf("GetMarketBySymbol failed: %v", err)
	}
	if fetched.Symbol != "ETH/USDT" {
		t.Errorf("unexpected symbol %s", fetched.Symbol)
	}

	if _, err := s.GetMarketBySymbol("DOGE/USDT"); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestSeedMarketsIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	seed := []domain.Market{
		{Symbol: "BTC/USDT", BaseAsset: "BTC", QuoteAsset: "USDT", MinOrderSize: dec("0.001"), MaxOrderSize: dec("1000"), TickSize: dec("0.1"), IsActive: true},
		{Symbol: "ETH/USDT", BaseAsset: "ETH", QuoteAsset: "USDT", MinOrderSize: dec("0.01"), MaxOrderSize: dec("10000"), TickSize: dec("0.01"), IsActive: true},
	}

	n, err := s.SeedMarkets(seed)
	if err != nil {
		t.Fatalf("SeedMarkets failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 seeded, got %d", n)
	}

	// Second call sees a non-empty table and does nothing.
	n, err = s.SeedMarkets(seed)
	if err != nil {
		t.Fatalf("second SeedMarkets failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 seeded on second call, got %d", n)
	}
}

func TestInsertAndGetOrder(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	order := testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "5", "0", domain.OrderStatusPending)

	fetched, err := s.GetOrder(order.ID, userID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if !fetched.Quantity.Equal(dec("5")) {
		t.Errorf("expected quantity 5, got %s", fetched.Quantity)
	}

	// Another account cannot see the order; the miss is indistinguishable.
	if _, err := s.GetOrder(order.ID, uuid.New()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound for foreign account, got %v", err)
	}
}

func TestRestingOrdersOrderingAndLimit(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	testOrder(t, s, market.ID, userID, domain.SideBuy, "99", "1", "0", domain.OrderStatusPending)
	testOrder(t, s, market.ID, userID, domain.SideBuy, "101", "1", "0", domain.OrderStatusPending)
	testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "1", "0", domain.OrderStatusPending)
	testOrder(t, s, market.ID, userID, domain.SideSell, "102", "1", "0", domain.OrderStatusPending)
	testOrder(t, s, market.ID, userID, domain.SideSell, "103", "1", "0", domain.OrderStatusPending)

	bids, err := s.RestingOrders(market.ID, domain.SideBuy, 2)
	if err != nil {
		t.Fatalf("RestingOrders failed: %v", err)
	}
	if len(bids) != 2 {
		t.Fatalf("expected 2 bids, got %d", len(bids))
	}
	if !bids[0].Price.Equal(dec("101")) || !bids[1].Price.Equal(dec("100")) {
		t.Errorf("bids not in descending price order: %s, %s", bids[0].Price, bids[1].Price)
	}

	asks, err := s.RestingOrders(market.ID, domain.SideSell, 10)
	if err != nil {
		t.Fatalf("RestingOrders failed: %v", err)
	}
	if len(asks) != 2 {
		t.Fatalf("expected 2 asks, got %d", len(asks))
	}
	if !asks[0].Price.Equal(dec("102")) {
		t.Errorf("asks not in ascending price order: %s", asks[0].Price)
	}
}

func TestRestingOrdersExcludesNonResting(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "1", "0", domain.OrderStatusCancelled)
	testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "10", "10", domain.OrderStatusPending)
	testOrder(t, s, market.ID, userID, domain.SideBuy, "", "1", "0", domain.OrderStatusPending)

	bids, err := s.RestingOrders(market.ID, domain.SideBuy, 10)
	if err != nil {
		t.Fatalf("RestingOrders failed: %v", err)
	}
	if len(bids) != 0 {
		t.Errorf("expected no resting bids, got %d", len(bids))
	}
}

func TestListOrdersFiltersAndPagination(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	other := testMarket(t, s, "ETH/USDT", true)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "1", "0", domain.OrderStatusPending)
	}
	testOrder(t, s, other.ID, userID, domain.SideBuy, "100", "1", "0", domain.OrderStatusPending)
	testOrder(t, s, market.ID, uuid.New(), domain.SideBuy, "100", "1", "0", domain.OrderStatusPending)

	orders, total, err := s.ListOrders(userID, OrderFilter{MarketID: &market.ID, Offset: 0, Limit: 3})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(orders) != 3 {
		t.Errorf("expected 3 rows on page, got %d", len(orders))
	}

	status := domain.OrderStatusCancelled
	_, total, err = s.ListOrders(userID, OrderFilter{Status: &status, Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("ListOrders by status failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no cancelled orders, got %d", total)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	order := testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "5", "0", domain.OrderStatusPending)

	cancelled, err := s.UpdateOrderStatus(order.ID, userID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	// Terminal rows are immutable.
	if _, err := s.UpdateOrderStatus(order.ID, userID, domain.OrderStatusFilled); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApplyFill(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	order := testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "10", "0", domain.OrderStatusPending)

	partial, err := s.ApplyFill(order.ID, userID, dec("4"), dec("99.5"))
	if err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}
	if !partial.FilledQuantity.Equal(dec("4")) {
		t.Errorf("expected filled 4, got %s", partial.FilledQuantity)
	}
	if partial.Status != domain.OrderStatusPending {
		t.Errorf("partial fill must stay pending, got %s", partial.Status)
	}
	if partial.AveragePrice == nil || !partial.AveragePrice.Equal(dec("99.5")) {
		t.Errorf("expected average price 99.5 after first fill, got %v", partial.AveragePrice)
	}

	// Overfill is rejected before any write.
	if _, err := s.ApplyFill(order.ID, userID, dec("7"), dec("99.5")); !errors.Is(err, domain.ErrInvariantViolation) {
		t.Errorf("expected ErrInvariantViolation on overfill, got %v", err)
	}

	// Completing the quantity flips status to filled.
	full, err := s.ApplyFill(order.ID, userID, dec("6"), dec("99.8"))
	if err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}
	if full.Status != domain.OrderStatusFilled {
		t.Errorf("expected filled, got %s", full.Status)
	}
	if err := full.CheckFillInvariant(); err != nil {
		t.Errorf("fill invariant violated: %v", err)
	}
	// (4*99.5 + 6*99.8) / 10
	if full.AveragePrice == nil || !full.AveragePrice.Equal(dec("99.68")) {
		t.Errorf("expected weighted average 99.68, got %v", full.AveragePrice)
	}

	// Terminal rows reject further fills.
	if _, err := s.ApplyFill(order.ID, userID, dec("1"), dec("100")); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on filled order, got %v", err)
	}
}

func TestApplyFillWeightsAverageByVolume(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	order := testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "4", "0", domain.OrderStatusPending)

	if _, err := s.ApplyFill(order.ID, userID, dec("2"), dec("99.5")); err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}
	second, err := s.ApplyFill(order.ID, userID, dec("2"), dec("99.8"))
	if err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}

	// Equal-volume fills at 99.5 and 99.8 average to 99.65, not the last price.
	if second.AveragePrice == nil || !second.AveragePrice.Equal(dec("99.65")) {
		t.Errorf("expected weighted average 99.65, got %v", second.AveragePrice)
	}

	// The stored row agrees with the returned one.
	stored, err := s.GetOrder(order.ID, userID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if stored.AveragePrice == nil || !stored.AveragePrice.Equal(dec("99.65")) {
		t.Errorf("expected persisted weighted average 99.65, got %v", stored.AveragePrice)
	}
}

func TestUpdateOrderStatusFilledCompletesFill(t *testing.T) {
	s := setupTestDB(t)
	market := testMarket(t, s, "BTC/USDT", true)
	userID := uuid.New()

	order := testOrder(t, s, market.ID, userID, domain.SideBuy, "100", "10", "4", domain.OrderStatusPending)

	filled, err := s.UpdateOrderStatus(order.ID, userID, domain.OrderStatusFilled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	if !filled.FilledQuantity.Equal(filled.Quantity) {
		t.Errorf("filled order must have filled_quantity == quantity, got %s/%s",
			filled.FilledQuantity, filled.Quantity)
	}
	if err := filled.CheckFillInvariant(); err != nil {
		t.Errorf("fill invariant violated: %v", err)
	}
}
