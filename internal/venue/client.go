package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"strikebot/internal/model"
)

// Client talks to the venue's REST API with signed requests, bounded
// retries, and payload normalization.
type Client struct {
	baseURL string
	http    *http.Client
	signer  Signer
	log     zerolog.Logger

	maxRetries  int
	baseBackoff time.Duration
}

// NewClient builds a venue client. The signer may be a NoopSigner for
// public-endpoint-only or simulated use.
func NewClient(baseURL string, signer Signer, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		signer:      signer,
		log:         log,
		maxRetries:  3,
		baseBackoff: 500 * time.Millisecond,
	}
}

// APIError is a non-2xx venue response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		headers, err := c.signer.Headers(method, path)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("path", path).Msg("venue request failed, retrying")
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: "rate limited"}
			c.log.Warn().Str("path", path).Msg("venue rate limited, backing off")
			continue
		}
		if resp.StatusCode >= 400 {
			var errBody struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(data, &errBody)
			if errBody.Message == "" && len(data) > 0 {
				errBody.Message = string(data[:min(len(data), 200)])
			}
			return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
		}
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("venue %s %s: retries exhausted: %w", method, path, lastErr)
}

// marketPayload is the venue's raw market shape; normalization to
// model.Market happens in one place so field probing never leaks upward.
type marketPayload struct {
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	NoBid        int    `json:"no_bid"`
	NoAsk        int    `json:"no_ask"`
	CloseTime    string `json:"close_time"`
	Volume24h    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
}

func normalizeMarket(p marketPayload) (model.Market, error) {
	if p.Ticker == "" {
		return model.Market{}, fmt.Errorf("market payload without ticker")
	}
	closeTime, err := time.Parse(time.RFC3339, p.CloseTime)
	if err != nil {
		return model.Market{}, fmt.Errorf("market %s: parse close_time %q: %w", p.Ticker, p.CloseTime, err)
	}
	return model.Market{
		Ticker:       p.Ticker,
		YesBidCents:  p.YesBid,
		YesAskCents:  p.YesAsk,
		NoBidCents:   p.NoBid,
		NoAskCents:   p.NoAsk,
		CloseTime:    closeTime,
		Volume24h:    p.Volume24h,
		OpenInterest: p.OpenInterest,
	}, nil
}

// OpenMarkets lists the open contracts of a series, following pagination.
func (c *Client) OpenMarkets(ctx context.Context, series string) ([]model.Market, error) {
	var out []model.Market
	cursor := ""
	for {
		params := url.Values{
			"series_ticker": {series},
			"status":        {"open"},
			"limit":         {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var resp struct {
			Markets []marketPayload `json:"markets"`
			Cursor  string          `json:"cursor"`
		}
		if err := c.do(ctx, http.MethodGet, "/markets", params, nil, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Markets {
			m, err := normalizeMarket(p)
			if err != nil {
				c.log.Warn().Err(err).Msg("skipping malformed market")
				continue
			}
			out = append(out, m)
		}
		if resp.Cursor == "" {
			return out, nil
		}
		cursor = resp.Cursor
	}
}

// MarketSnapshot fetches one contract. A snapshot with no quoted side at
// all returns ErrMissingQuote.
func (c *Client) MarketSnapshot(ctx context.Context, ticker string) (model.Market, error) {
	var resp struct {
		Market marketPayload `json:"market"`
	}
	if err := c.do(ctx, http.MethodGet, "/markets/"+ticker, nil, nil, &resp); err != nil {
		return model.Market{}, err
	}
	m, err := normalizeMarket(resp.Market)
	if err != nil {
		return model.Market{}, err
	}
	if m.YesAskCents == 0 && m.NoAskCents == 0 && m.YesBidCents == 0 && m.NoBidCents == 0 {
		return model.Market{}, fmt.Errorf("market %s: %w", ticker, ErrMissingQuote)
	}
	return m, nil
}

// OrderBook fetches price levels for one contract. Levels arrive ascending;
// the best bid is the last element of each side.
func (c *Client) OrderBook(ctx context.Context, ticker string, depth int) (Book, error) {
	params := url.Values{"depth": {strconv.Itoa(depth)}}
	var resp struct {
		Orderbook struct {
			Yes [][2]int `json:"yes"`
			No  [][2]int `json:"no"`
		} `json:"orderbook"`
	}
	if err := c.do(ctx, http.MethodGet, "/markets/"+ticker+"/orderbook", params, nil, &resp); err != nil {
		return Book{}, err
	}
	return Book{Yes: resp.Orderbook.Yes, No: resp.Orderbook.No}, nil
}

// PlaceOrder submits an order. The venue prices the chosen side only.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	payload := map[string]any{
		"ticker":          req.Ticker,
		"client_order_id": req.ClientOrderID,
		"action":          req.Action,
		"side":            string(req.Side),
		"type":            "limit",
		"count":           req.Count,
	}
	if req.Side == model.SideYes {
		payload["yes_price"] = req.PriceCents
	} else {
		payload["no_price"] = req.PriceCents
	}
	if req.TimeInForce == TifIOC {
		payload["time_in_force"] = "immediate_or_cancel"
	}

	var resp struct {
		Order struct {
			OrderID   string `json:"order_id"`
			Status    string `json:"status"`
			FillCount int    `json:"fill_count"`
		} `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/portfolio/orders", nil, payload, &resp); err != nil {
		return OrderResult{}, err
	}
	if resp.Order.OrderID == "" {
		return OrderResult{}, fmt.Errorf("place order %s: venue returned no order id", req.Ticker)
	}
	return OrderResult{
		OrderID:   resp.Order.OrderID,
		Status:    resp.Order.Status,
		FillCount: resp.Order.FillCount,
	}, nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/portfolio/orders/"+orderID, nil, nil, nil)
}

// OrderStatus polls one order.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (OrderState, error) {
	var resp struct {
		Order struct {
			Status    string `json:"status"`
			FillCount int    `json:"fill_count"`
		} `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/orders/"+orderID, nil, nil, &resp); err != nil {
		return OrderState{}, err
	}
	return OrderState{Status: resp.Order.Status, FillCount: resp.Order.FillCount}, nil
}

// OpenPositions lists unsettled holdings. The signed net `position` field
// is the authoritative count; cumulative totals are ignored.
func (c *Client) OpenPositions(ctx context.Context) ([]Position, error) {
	params := url.Values{"settlement_status": {"unsettled"}, "limit": {"200"}}
	var resp struct {
		MarketPositions []struct {
			Ticker   string `json:"ticker"`
			Position int    `json:"position"`
		} `json:"market_positions"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/positions", params, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(resp.MarketPositions))
	for _, p := range resp.MarketPositions {
		if p.Position == 0 {
			continue
		}
		out = append(out, Position{Ticker: p.Ticker, NetCount: p.Position})
	}
	return out, nil
}

// Settlements lists recently settled markets and their results.
func (c *Client) Settlements(ctx context.Context, limit int) ([]Settlement, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	var resp struct {
		Settlements []struct {
			Ticker       string `json:"ticker"`
			MarketResult string `json:"market_result"`
		} `json:"settlements"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/settlements", params, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Settlement, 0, len(resp.Settlements))
	for _, s := range resp.Settlements {
		out = append(out, Settlement{Ticker: s.Ticker, Result: s.MarketResult})
	}
	return out, nil
}

// Fills lists executions for one contract, used to recover entry prices
// for orphan positions.
func (c *Client) Fills(ctx context.Context, ticker string) ([]Fill, error) {
	params := url.Values{"ticker": {ticker}, "limit": {"100"}}
	var resp struct {
		Fills []struct {
			Action   string `json:"action"`
			Side     string `json:"side"`
			YesPrice int    `json:"yes_price"`
			NoPrice  int    `json:"no_price"`
			Count    int    `json:"count"`
		} `json:"fills"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/fills", params, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Fill, 0, len(resp.Fills))
	for _, f := range resp.Fills {
		side := model.Side(f.Side)
		price := f.YesPrice
		if side == model.SideNo {
			price = f.NoPrice
		}
		out = append(out, Fill{Action: f.Action, Side: side, PriceCents: price, Count: f.Count})
	}
	return out, nil
}

// BalanceCents returns the account balance.
func (c *Client) BalanceCents(ctx context.Context) (int64, error) {
	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/balance", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// ExchangeStatus reports whether the exchange is online and trading is open.
func (c *Client) ExchangeStatus(ctx context.Context) (ExchangeStatus, error) {
	var resp ExchangeStatus
	if err := c.do(ctx, http.MethodGet, "/exchange/status", nil, nil, &resp); err != nil {
		return ExchangeStatus{}, err
	}
	return resp, nil
}
