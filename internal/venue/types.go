// Package venue is the typed boundary to the prediction-market exchange.
// Every payload is normalized here once; the engine never sees raw JSON.
package venue

import (
	"context"
	"errors"

	"strikebot/internal/model"
)

// ErrMissingQuote marks a market snapshot the venue returned without any
// usable price, so callers can distinguish "no quote" from "quote of zero".
var ErrMissingQuote = errors.New("market has no quoted side")

// Order lifecycle states as the venue reports them.
const (
	StatusResting  = "resting"
	StatusExecuted = "executed"
	StatusCanceled = "canceled"
	StatusPending  = "pending"
)

// Order actions and time-in-force values.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"

	TifGTC = ""    // rest on the book
	TifIOC = "ioc" // immediate-or-cancel
)

// Book holds both sides of a contract order book. Levels are ascending by
// price; the best resting bid is the last element of each side.
type Book struct {
	Yes [][2]int
	No  [][2]int
}

func levels(b Book, side model.Side) [][2]int {
	if side == model.SideYes {
		return b.Yes
	}
	return b.No
}

// BestBid returns the top resting bid for a side.
func (b Book) BestBid(side model.Side) (price, qty int, ok bool) {
	lv := levels(b, side)
	if len(lv) == 0 {
		return 0, 0, false
	}
	top := lv[len(lv)-1]
	return top[0], top[1], true
}

// DepthRatio returns the share of resting quantity on the given side.
func (b Book) DepthRatio(side model.Side) float64 {
	var own, opp float64
	for _, lv := range levels(b, side) {
		own += float64(lv[1])
	}
	other := model.SideNo
	if side == model.SideNo {
		other = model.SideYes
	}
	for _, lv := range levels(b, other) {
		opp += float64(lv[1])
	}
	if own+opp == 0 {
		return 0
	}
	return own / (own + opp)
}

// OrderRequest is a normalized order submission.
type OrderRequest struct {
	Ticker        string
	Action        string // buy or sell
	Side          model.Side
	Count         int
	PriceCents    int
	TimeInForce   string
	ClientOrderID string
}

// OrderResult is the venue's answer to a placement.
type OrderResult struct {
	OrderID   string
	Status    string
	FillCount int
}

// OrderState is a polled order status.
type OrderState struct {
	Status    string
	FillCount int
}

// Position is a venue-reported holding: positive count is net YES,
// negative is net NO. The venue list is authoritative for existence.
type Position struct {
	Ticker   string
	NetCount int
}

// Settlement is a finished market and its result ("yes" or "no").
type Settlement struct {
	Ticker string
	Result string
}

// Fill is one execution. The local fills history is authoritative for
// recovered entry prices.
type Fill struct {
	Action     string
	Side       model.Side
	PriceCents int
	Count      int
}

// ExchangeStatus reports whether the venue is up and accepting trades.
type ExchangeStatus struct {
	ExchangeActive bool `json:"exchange_active"`
	TradingActive  bool `json:"trading_active"`
}

// API is the narrow interface the lifecycle engine trades through.
type API interface {
	OpenMarkets(ctx context.Context, series string) ([]model.Market, error)
	MarketSnapshot(ctx context.Context, ticker string) (model.Market, error)
	OrderBook(ctx context.Context, ticker string, depth int) (Book, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	OrderStatus(ctx context.Context, orderID string) (OrderState, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	Settlements(ctx context.Context, limit int) ([]Settlement, error)
	Fills(ctx context.Context, ticker string) ([]Fill, error)
	BalanceCents(ctx context.Context) (int64, error)
	ExchangeStatus(ctx context.Context) (ExchangeStatus, error)
}
