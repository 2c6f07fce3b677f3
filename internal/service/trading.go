package service

import (
	"log/slog"
	"time"

	"perpdesk/internal/domain"
	"perpdesk/internal/infra/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradingService implements the order lifecycle: admission, book aggregation,
// history queries and cancellation. Matching and settlement are external; the
// service never fills orders itself.
type TradingService struct {
	store  *storage.Storage
	logger *slog.Logger
}

// NewTradingService creates a TradingService over the given store.
func NewTradingService(store *storage.Storage, logger *slog.Logger) *TradingService {
	return &TradingService{
		store:  store,
		logger: logger.With("module", "trading"),
	}
}

// ListMarkets returns all markets ordered by symbol.
func (s *TradingService) ListMarkets() ([]domain.Market, error) {
	return s.store.ListMarkets()
}

// GetMarketBySymbol resolves a market symbol like "BTC/USDT".
func (s *TradingService) GetMarketBySymbol(symbol string) (*domain.Market, error) {
	return s.store.GetMarketBySymbol(symbol)
}

// PlaceOrderRequest is the admission input. UserID always comes from the
// authenticated identity, never from a request body.
type PlaceOrderRequest struct {
	MarketID   uuid.UUID
	OrderType  domain.OrderType
	Side       domain.OrderSide
	Quantity   decimal.Decimal
	Price      *decimal.Decimal
	Leverage   *decimal.Decimal
	MarginType *string
}

// PlaceOrder validates a placement request against the market registry and
// persists exactly one pending order. Validation short-circuits on the first
// failure and nothing is written until every check passes.
func (s *TradingService) PlaceOrder(userID uuid.UUID, req PlaceOrderRequest) (*domain.Order, error) {
	market, err := s.store.GetMarket(req.MarketID)
	if err != nil {
		return nil, err
	}
	if !market.IsActive {
		return nil, domain.ErrMarketInactive
	}

	if !req.Side.Valid() {
		return nil, domain.NewValidationError("side", "must be buy or sell")
	}
	if !req.OrderType.Valid() {
		return nil, domain.NewValidationError("order_type", "must be market, limit or stop")
	}
	if !req.Quantity.IsPositive() {
		return nil, domain.NewValidationError("quantity", "must be positive")
	}
	if !market.QuantityInBounds(req.Quantity) {
		return nil, domain.NewValidationError("quantity",
			"must be between "+market.MinOrderSize.String()+" and "+market.MaxOrderSize.String())
	}

	price := req.Price
	switch req.OrderType {
	case domain.OrderTypeMarket:
		// A market order has no resting price.
		price = nil
	default:
		if price == nil || !price.IsPositive() {
			return nil, domain.NewValidationError("price", "required and must be positive for "+string(req.OrderType)+" orders")
		}
		if !market.PriceAligned(*price) {
			return nil, domain.NewValidationError("price", "must be a multiple of tick size "+market.TickSize.String())
		}
	}

	if req.MarginType != nil && *req.MarginType != "isolated" && *req.MarginType != "cross" {
		return nil, domain.NewValidationError("margin_type", "must be isolated or cross")
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:             uuid.New(),
		UserID:         userID,
		MarketID:       market.ID,
		OrderType:      req.OrderType,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          price,
		Status:         domain.OrderStatusPending,
		FilledQuantity: decimal.Zero,
		Leverage:       req.Leverage,
		MarginType:     req.MarginType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.InsertOrder(order); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("symbol", market.Symbol),
		slog.String("side", string(order.Side)),
		slog.String("quantity", order.Quantity.String()))

	return order, nil
}

// CancelOrder moves a pending order to cancelled. Only the owner may cancel;
// an order owned by someone else reports not found. Terminal orders fail with
// ErrInvalidTransition.
func (s *TradingService) CancelOrder(userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.store.UpdateOrderStatus(orderID, userID, domain.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", slog.String("order_id", order.ID.String()))
	return order, nil
}
