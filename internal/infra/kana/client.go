package kana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"perpdesk/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the perps trade API endpoint.
const DefaultBaseURL = "https://perps-tradeapi.kanalabs.io"

// Client is a thin REST proxy to the Kana Labs perpetuals API. It forwards
// requests and responses with no decision logic of its own.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an authenticated API client.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: logger.With("module", "kana_client"),
	}
}

// GetMarketInfo fetches reference data for one upstream market.
func (c *Client) GetMarketInfo(ctx context.Context, marketID string) (*Market, error) {
	query := url.Values{"marketId": {marketID}}

	var out struct {
		Success bool     `json:"success"`
		Data    []Market `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/getMarketInfo", query, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: empty market info for %s", domain.ErrExternalAPI, marketID)
	}
	return &out.Data[0], nil
}

// Market ids assigned by the upstream exchange for symbols this deployment
// lists. 1338 is APT-USD.
// TODO: resolve ids from /getPerpetualAssetsInfo instead of pinning them.
var marketIDs = map[string]string{
	"APT/USDT": "1338",
}

// GetMarketPrice resolves a local symbol to its upstream market and returns
// the reported mark price. Symbols with no upstream listing fail with
// ErrExternalAPI so callers can fall back.
func (c *Client) GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	id, ok := marketIDs[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no upstream market for %s", domain.ErrExternalAPI, symbol)
	}

	market, err := c.GetMarketInfo(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return market.Price, nil
}

// GetFundingRate fetches the current funding rate for a symbol.
func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*FundingRate, error) {
	query := url.Values{"symbol": {symbol}}

	var out struct {
		Success bool        `json:"success"`
		Data    FundingRate `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/getFundingRate", query, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// PlaceOrder forwards a placement to the upstream exchange.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	var out struct {
		Success bool          `json:"success"`
		Data    OrderResponse `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/placeOrder", nil, req, &out); err != nil {
		return nil, err
	}

	c.logger.Info("upstream order placed",
		slog.String("order_id", out.Data.OrderID), slog.String("symbol", req.Symbol))
	return &out.Data, nil
}

// GetPositions fetches the caller's open upstream positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var out struct {
		Success bool       `json:"success"`
		Data    []Position `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/getPositions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// doRequest handles auth headers, serialization and error mapping. Every
// failure wraps domain.ErrExternalAPI.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", domain.ErrExternalAPI, err)
		}
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalAPI, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status=%d body=%s", domain.ErrExternalAPI, resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("%w: parse response: %v", domain.ErrExternalAPI, err)
		}
	}
	return nil
}
