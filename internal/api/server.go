package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"perpdesk/internal/infra"
	"perpdesk/internal/infra/kana"
	"perpdesk/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// TokenVerifier resolves a bearer token to a caller identity. Token issuance
// belongs to the account service; this server only consumes identities.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Server exposes the trading core over REST and WebSocket.
type Server struct {
	trading  *service.TradingService
	verifier TokenVerifier
	metrics  *infra.Metrics
	kana     *kana.Client
	logger   *slog.Logger
	router   *mux.Router
	origins  []string
	httpSrv  *http.Server
}

// NewServer wires routes for the given trading service. The kana client is
// optional; without it the upstream proxy endpoints report bad gateway.
func NewServer(trading *service.TradingService, verifier TokenVerifier, metrics *infra.Metrics, kanaClient *kana.Client, logger *slog.Logger, origins []string) *Server {
	s := &Server{
		trading:  trading,
		verifier: verifier,
		metrics:  metrics,
		kana:     kanaClient,
		logger:   logger.With("module", "api"),
		router:   mux.NewRouter(),
		origins:  origins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	trading := api.PathPrefix("/trading").Subrouter()
	trading.HandleFunc("/markets", s.instrument(s.handleGetMarkets)).Methods("GET")
	trading.HandleFunc("/orderbook/{symbol:.+}", s.instrument(s.handleGetOrderbook)).Methods("GET")
	trading.HandleFunc("/orders", s.instrument(s.requireAuth(s.handlePlaceOrder))).Methods("POST")
	trading.HandleFunc("/orders", s.instrument(s.requireAuth(s.handleGetOrders))).Methods("GET")
	trading.HandleFunc("/orders/{order_id}", s.instrument(s.requireAuth(s.handleCancelOrder))).Methods("DELETE")
	trading.HandleFunc("/positions", s.instrument(s.requireAuth(s.handleGetPositions))).Methods("GET")
	trading.HandleFunc("/upstream/orders", s.instrument(s.requireAuth(s.handleUpstreamPlaceOrder))).Methods("POST")
	trading.HandleFunc("/funding-rate/{symbol:.+}", s.instrument(s.handleGetFundingRate)).Methods("GET")
	trading.HandleFunc("/price/{symbol:.+}", s.instrument(s.handleGetMarketPrice)).Methods("GET")
	trading.HandleFunc("/ws/orderbook/{symbol:.+}", s.handleOrderBookStream).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// instrument records request count and latency for every route it wraps.
func (s *Server) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.metrics.RecordRequest(time.Since(start).Nanoseconds())
	}
}
