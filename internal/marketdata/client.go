// Package marketdata fetches spot candles and order-book depth from the
// exchange's public REST API and maintains an optional live trade stream.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"strikebot/internal/model"
)

// Client is the unauthenticated market-data source.
type Client struct {
	baseURL string
	symbol  string
	http    *http.Client
}

// NewClient builds a REST market-data client for one symbol.
func NewClient(baseURL, symbol string) *Client {
	return &Client{
		baseURL: baseURL,
		symbol:  symbol,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Candles fetches up to limit klines at the given granularity ("1m", "5m"),
// ordered ascending. Rows with unparseable numbers produce an error rather
// than a silent default.
func (c *Client) Candles(ctx context.Context, granularity string, limit int) ([]model.Candle, error) {
	params := url.Values{
		"symbol":   {c.symbol},
		"interval": {granularity},
		"limit":    {strconv.Itoa(limit)},
	}
	var rows [][]json.RawMessage
	if err := c.get(ctx, "/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: want 6 fields, got %d", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline row %d: open time: %w", i, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			var s string
			if err := json.Unmarshal(row[j], &s); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			vals[j-1] = v
		}
		candles = append(candles, model.Candle{
			Time:   time.UnixMilli(openMs).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return candles, nil
}

// OrderBookRatio fetches top-N depth and condenses it into the bid/ask
// imbalance ratio the signal engine votes on.
func (c *Client) OrderBookRatio(ctx context.Context, levels int) (model.OrderBookSnapshot, error) {
	params := url.Values{
		"symbol": {c.symbol},
		"limit":  {strconv.Itoa(levels)},
	}
	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := c.get(ctx, "/api/v3/depth", params, &resp); err != nil {
		return model.OrderBookSnapshot{}, err
	}

	sum := func(side [][2]string) (float64, error) {
		var total float64
		for _, lv := range side {
			qty, err := strconv.ParseFloat(lv[1], 64)
			if err != nil {
				return 0, fmt.Errorf("depth quantity %q: %w", lv[1], err)
			}
			total += qty
		}
		return total, nil
	}
	bid, err := sum(resp.Bids)
	if err != nil {
		return model.OrderBookSnapshot{}, err
	}
	ask, err := sum(resp.Asks)
	if err != nil {
		return model.OrderBookSnapshot{}, err
	}
	if bid+ask == 0 {
		return model.OrderBookSnapshot{}, fmt.Errorf("depth: empty book")
	}
	return model.OrderBookSnapshot{
		BidDepth: bid,
		AskDepth: ask,
		Ratio:    bid / (bid + ask),
	}, nil
}
