// Package model standardizes the domain types shared between market data,
// signal generation, pricing, and the position lifecycle.
package model

import "time"

// Direction is the directional bias of a signal.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// Side is the contract side an order or position is on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Candle is one OHLCV bar. Windows are ordered ascending by Time.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// OrderBookSnapshot condenses top-of-book depth into a single imbalance ratio.
// Ratio = bidDepth / (bidDepth + askDepth); 0.5 is a balanced book.
type OrderBookSnapshot struct {
	BidDepth float64 `json:"bid_depth"`
	AskDepth float64 `json:"ask_depth"`
	Ratio    float64 `json:"ratio"`
}

// Signal is the scored output of one evaluation cycle.
// A neutral signal always carries zero confidence.
type Signal struct {
	Direction                 Direction      `json:"direction"`
	Score                     float64        `json:"score"`
	Confidence                float64        `json:"confidence"`
	PredictedProbabilityCents int            `json:"predicted_probability_cents"`
	Votes                     map[string]int `json:"votes,omitempty"`
}

// Market is a normalized venue contract snapshot. All prices are integer
// cents in [1,99]; zero means the venue did not quote that side.
type Market struct {
	Ticker       string    `json:"ticker"`
	YesBidCents  int       `json:"yes_bid_cents"`
	YesAskCents  int       `json:"yes_ask_cents"`
	NoBidCents   int       `json:"no_bid_cents"`
	NoAskCents   int       `json:"no_ask_cents"`
	CloseTime    time.Time `json:"close_time"`
	Volume24h    int64     `json:"volume_24h,omitempty"`
	OpenInterest int64     `json:"open_interest,omitempty"`
}

// AskFor returns the executable ask for the given side.
func (m Market) AskFor(side Side) int {
	if side == SideYes {
		return m.YesAskCents
	}
	return m.NoAskCents
}

// BidFor returns the best bid for the given side.
func (m Market) BidFor(side Side) int {
	if side == SideYes {
		return m.YesBidCents
	}
	return m.NoBidCents
}

// PendingOrder is an entry order that has been submitted but not resolved.
// At most one exists per series at any time.
type PendingOrder struct {
	OrderID    string    `json:"order_id"`
	Ticker     string    `json:"ticker"`
	Side       Side      `json:"side"`
	LimitCents int       `json:"limit_cents"`
	Count      int       `json:"count"`
	PlacedAt   time.Time `json:"placed_at"`
	CloseTime  time.Time `json:"close_time"`
	Signal     Signal    `json:"signal"`
}

// Position is an open holding. At most one exists per series at any time;
// Count is reconciled against the venue every cycle.
type Position struct {
	Ticker       string    `json:"ticker"`
	Side         Side      `json:"side"`
	EntryCents   int       `json:"entry_cents"`
	Count        int       `json:"count"`
	OpenedAt     time.Time `json:"opened_at"`
	CloseTime    time.Time `json:"close_time"`
	PeakBidCents int       `json:"peak_bid_cents"`
	Recovered    bool      `json:"recovered,omitempty"`
	Signal       Signal    `json:"signal"`
}

// TradeResult classifies how a closed trade ended.
type TradeResult string

const (
	ResultWin      TradeResult = "win"
	ResultLoss     TradeResult = "loss"
	ResultTakeProf TradeResult = "tp_exit"
)

// ClosedTrade is an append-only record of a finished trade, the sole input
// to the learning module.
type ClosedTrade struct {
	Ticker     string      `json:"ticker"`
	Side       Side        `json:"side"`
	EntryCents int         `json:"entry_cents"`
	ExitCents  int         `json:"exit_cents"`
	Count      int         `json:"count"`
	Result     TradeResult `json:"result"`
	Reason     string      `json:"reason"`
	PnLCents   int         `json:"pnl_cents"`
	Signal     Signal      `json:"signal"`
	OpenedAt   time.Time   `json:"opened_at"`
	ClosedAt   time.Time   `json:"closed_at"`
}

// Won reports whether the trade ended profitably (settlement win or a
// take-profit exit).
func (t ClosedTrade) Won() bool {
	return t.Result == ResultWin || t.Result == ResultTakeProf
}

// DailyStats accumulates per-series results for one UTC date (YYYY-MM-DD)
// and resets at rollover.
type DailyStats struct {
	Date        string `json:"date"`
	Trades      int    `json:"trades"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	TakeProfits int    `json:"take_profits"`
	PnLCents    int    `json:"pnl_cents"`
}
