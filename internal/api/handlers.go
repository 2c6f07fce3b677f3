package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"perpdesk/internal/domain"
	"perpdesk/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"metrics": s.metrics.Snapshot(),
	})
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.trading.ListMarkets()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, markets)
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	market, err := s.trading.GetMarketBySymbol(symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil || depth < 1 {
			s.writeError(w, domain.NewValidationError("depth", "must be a positive integer"))
			return
		}
	}

	book, err := s.trading.GetOrderBook(market.ID, depth)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.RecordBookRequest()
	s.writeSuccess(w, http.StatusOK, book)
}

// placeOrderBody is the wire shape of an order placement. Decimal fields
// accept JSON numbers and strings; the owner never comes from the body.
type placeOrderBody struct {
	MarketID   uuid.UUID        `json:"market_id"`
	OrderType  string           `json:"order_type"`
	Side       string           `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      *decimal.Decimal `json:"price"`
	Leverage   *decimal.Decimal `json:"leverage"`
	MarginType *string          `json:"margin_type"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerIdentity(r)
	if !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return
	}

	var body placeOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if body.MarketID == uuid.Nil {
		s.writeError(w, domain.NewValidationError("market_id", "required"))
		return
	}

	order, err := s.trading.PlaceOrder(userID, service.PlaceOrderRequest{
		MarketID:   body.MarketID,
		OrderType:  domain.OrderType(body.OrderType),
		Side:       domain.OrderSide(body.Side),
		Quantity:   body.Quantity,
		Price:      body.Price,
		Leverage:   body.Leverage,
		MarginType: body.MarginType,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.RecordOrderPlaced()
	s.writeSuccess(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerIdentity(r)
	if !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return
	}

	req := service.ListOrdersRequest{}
	q := r.URL.Query()

	if raw := q.Get("market_id"); raw != "" {
		marketID, err := uuid.Parse(raw)
		if err != nil {
			s.writeError(w, domain.NewValidationError("market_id", "must be a UUID"))
			return
		}
		req.MarketID = &marketID
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		req.Status = &status
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, domain.NewValidationError("page", "must be an integer"))
			return
		}
		req.Page = page
	}
	if raw := q.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, domain.NewValidationError("per_page", "must be an integer"))
			return
		}
		req.PerPage = perPage
	}

	page, err := s.trading.ListOrders(userID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePage(w, page)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerIdentity(r)
	if !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["order_id"])
	if err != nil {
		s.writeError(w, domain.NewValidationError("order_id", "must be a UUID"))
		return
	}

	order, err := s.trading.CancelOrder(userID, orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.RecordOrderCancelled()
	s.writeMessage(w, http.StatusOK, order, "Order cancelled successfully")
}
