package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// bookStreamInterval is how often a fresh snapshot is pushed to each client.
const bookStreamInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS layer for REST; the book
	// stream is public read-only data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleOrderBookStream upgrades the connection and pushes book snapshots on
// an interval until the client disconnects. Each push is an independent
// best-effort snapshot; no ordering is guaranteed across clients.
func (s *Server) handleOrderBookStream(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	market, err := s.trading.GetMarketBySymbol(symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	s.metrics.IncrementStreamClients()
	s.logger.Info("book stream opened", slog.String("symbol", symbol))

	go func() {
		defer func() {
			conn.Close()
			s.metrics.DecrementStreamClients()
			s.logger.Info("book stream closed", slog.String("symbol", symbol))
		}()

		// Read pump: discard client frames, detect disconnect.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(bookStreamInterval)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case <-ticker.C:
				book, err := s.trading.GetOrderBook(market.ID, 0)
				if err != nil {
					s.logger.Warn("book stream snapshot failed",
						slog.String("symbol", symbol), slog.Any("error", err))
					return
				}
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(book); err != nil {
					return
				}
			}
		}
	}()
}
